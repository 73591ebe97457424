package ml

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

// synthCSV renders n deterministic CBC rows. Anemia follows the usual
// hemoglobin cut-offs with a little label noise.
func synthCSV(n int, seed int64) string {
	rng := rand.New(rand.NewSource(seed))
	var b strings.Builder
	b.WriteString("Age,Sex,Hemoglobin,Hematocrit,RBC,MCV,MCH,MCHC,WBC,Platelets,Anemia\n")
	for i := 0; i < n; i++ {
		sex := "F"
		cutoff := 12.0
		if rng.Intn(2) == 0 {
			sex = "M"
			cutoff = 13.0
		}
		hb := 8 + rng.Float64()*9
		anemia := 0
		if hb < cutoff {
			anemia = 1
		}
		if rng.Float64() < 0.03 {
			anemia = 1 - anemia
		}
		fmt.Fprintf(&b, "%d,%s,%.1f,%.1f,%.2f,%.1f,%.1f,%.1f,%.1f,%d,%d\n",
			18+rng.Intn(70), sex, hb, hb*3+rng.Float64()*2, 3.5+rng.Float64()*2,
			75+rng.Float64()*25, 25+rng.Float64()*8, 30+rng.Float64()*6,
			4+rng.Float64()*7, 150000+rng.Intn(250000), anemia)
	}
	return b.String()
}

func synthDataset(t *testing.T, n int) *Dataset {
	t.Helper()
	ds, err := ReadDataset(strings.NewReader(synthCSV(n, 7)))
	if err != nil {
		t.Fatalf("synth dataset: %v", err)
	}
	return ds
}

func scenarioSample() Sample {
	s := NewSample()
	s.Numeric["Age"] = 45
	s.Categorical["Sex"] = "F"
	s.Numeric["Hemoglobin"] = 10.2
	s.Numeric["Hematocrit"] = 32
	s.Numeric["RBC"] = 4.1
	s.Numeric["MCV"] = 88
	s.Numeric["MCH"] = 29
	s.Numeric["MCHC"] = 33
	s.Numeric["WBC"] = 6.5
	s.Numeric["Platelets"] = 250000
	return s
}

func testMetadata() Metadata {
	return Metadata{
		ModelType:     ModelTypeRandomForest,
		Features:      DefaultFeatureNames(),
		LabelEncoders: map[string][]string{SexColumn: {"F", "M"}},
		Threshold:     DefaultThreshold,
	}
}
