package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// tokenPattern matches runs of two or more Unicode letters, digits or
// underscores, the default vectorizer token pattern the models are exported
// with. RE2's \w is ASCII only, so the classes are spelled out.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// ModelArtifact is the serialized form of a multinomial naive Bayes model.
type ModelArtifact struct {
	Classes        []string             `json:"classes"`
	SpamLabel      string               `json:"spam_label"`
	ClassLogPrior  []float64            `json:"class_log_prior"`
	FeatureLogProb map[string][]float64 `json:"feature_log_prob"`
	Lowercase      *bool                `json:"lowercase,omitempty"`
}

// Model is a loaded, immutable naive Bayes classifier. It is safe for
// concurrent use.
type Model struct {
	classes   []string
	spamIndex int
	prior     []float64
	features  map[string][]float64
	lowercase bool
}

// LoadModel reads and validates a model artifact from path.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var artifact ModelArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	return NewModel(artifact)
}

// NewModel validates artifact and builds a Model from it.
func NewModel(artifact ModelArtifact) (*Model, error) {
	n := len(artifact.Classes)
	if n < 2 {
		return nil, errors.New("model needs at least two classes")
	}
	if len(artifact.ClassLogPrior) != n {
		return nil, fmt.Errorf("class_log_prior has %d entries, want %d", len(artifact.ClassLogPrior), n)
	}
	spamLabel := artifact.SpamLabel
	if spamLabel == "" {
		spamLabel = "spam"
	}
	spamIndex := -1
	for i, c := range artifact.Classes {
		if c == spamLabel {
			spamIndex = i
		}
	}
	if spamIndex < 0 {
		return nil, fmt.Errorf("spam label %q is not a model class", spamLabel)
	}
	for token, probs := range artifact.FeatureLogProb {
		if len(probs) != n {
			return nil, fmt.Errorf("feature %q has %d entries, want %d", token, len(probs), n)
		}
	}
	lowercase := true
	if artifact.Lowercase != nil {
		lowercase = *artifact.Lowercase
	}
	return &Model{
		classes:   artifact.Classes,
		spamIndex: spamIndex,
		prior:     artifact.ClassLogPrior,
		features:  artifact.FeatureLogProb,
		lowercase: lowercase,
	}, nil
}

// Classify predicts the most likely class of text. Tokens outside the
// vocabulary are ignored.
func (m *Model) Classify(ctx context.Context, text string) (bool, error) {
	if m == nil {
		return false, errors.New("model not loaded")
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if m.lowercase {
		text = strings.ToLower(text)
	}

	scores := make([]float64, len(m.prior))
	copy(scores, m.prior)
	for _, token := range tokenPattern.FindAllString(text, -1) {
		probs, ok := m.features[token]
		if !ok {
			continue
		}
		for i, p := range probs {
			scores[i] += p
		}
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best == m.spamIndex, nil
}

// Classes returns the class labels in model order.
func (m *Model) Classes() []string {
	return append([]string(nil), m.classes...)
}
