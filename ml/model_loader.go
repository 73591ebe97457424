package ml

import (
	"fmt"
)

const (
	ModelTypeDecisionTree = "decision_tree"
	ModelTypeRandomForest = "random_forest"
)

func NewModel(modelType string, nTrees, maxDepth int, seed int64) (MLModel, error) {
	switch modelType {
	case ModelTypeDecisionTree:
		tree := NewDecisionTree(maxDepth)
		tree.Seed = seed
		return tree, nil
	case ModelTypeRandomForest, "":
		return NewRandomForest(nTrees, maxDepth, seed), nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

func LoadModel(modelType, path string) (MLModel, error) {
	var model MLModel
	switch modelType {
	case ModelTypeDecisionTree:
		model = &DecisionTree{}
	case ModelTypeRandomForest:
		model = &RandomForest{}
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
	if err := model.Load(path); err != nil {
		return nil, fmt.Errorf("load %s model from %s: %w", modelType, path, err)
	}
	return model, nil
}
