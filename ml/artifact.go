package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	ModelFileName    = "anemia_model.json"
	MetadataFileName = "metadata.json"
)

// Artifact is a fitted model and the metadata needed to feed it. It is
// never mutated after Save or LoadArtifact.
type Artifact struct {
	Model    MLModel
	Metadata Metadata
}

func ModelPath(dir string) string {
	return filepath.Join(dir, ModelFileName)
}

func MetadataPath(dir string) string {
	return filepath.Join(dir, MetadataFileName)
}

func (a *Artifact) Save(dir string) error {
	if a.Model == nil {
		return ErrModelNotTrained
	}
	if err := a.check(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	if err := a.Model.Save(ModelPath(dir)); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return a.writeMetadata(dir)
}

func (a *Artifact) writeMetadata(dir string) error {
	payload, err := json.MarshalIndent(a.Metadata, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(MetadataPath(dir), payload, 0o644); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// LoadArtifact reads and validates both artifact files from dir.
func LoadArtifact(dir string) (*Artifact, error) {
	payload, err := os.ReadFile(MetadataPath(dir))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	model, err := LoadModel(meta.ModelType, ModelPath(dir))
	if err != nil {
		return nil, err
	}
	a := &Artifact{Model: model, Metadata: meta}
	if err := a.check(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Artifact) check() error {
	if err := a.Metadata.Validate(); err != nil {
		return fmt.Errorf("invalid metadata: %w", err)
	}
	if a.Model.NumFeatures() != len(a.Metadata.Features) {
		return errors.New("model feature count does not match metadata features")
	}
	return nil
}
