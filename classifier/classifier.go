// Package classifier maps raw user input to a CRUD intent: an operation
// plus a target collection. Two model shapes exist in deployments, the
// legacy keyword pipeline and the bundle that wraps a pipeline with a
// synonym vocabulary and a confidence floor. They form a closed variant
// dispatched in exactly one place.
package classifier

import (
	"strings"

	"go.uber.org/zap"
)

// Intent is the classification result.
type Intent struct {
	Operation  string  `json:"operation"`
	Collection string  `json:"collection"`
	Confidence float64 `json:"confidence"`
}

// Known reports whether the classifier found a target collection.
func (i Intent) Known() bool { return i.Collection != "" }

// Model is the closed classifier variant. Only LegacyPipeline and Bundle
// implement it.
type Model interface {
	isModel()
}

// LegacyPipeline is the original keyword model: ordered operation rules
// and a flat list of collection names matched as substrings.
type LegacyPipeline struct {
	// Operations maps a trigger word to the operation it signals.
	// Triggers are matched on whole words of the lowercased input.
	Operations map[string]string
	// Collections are the recognizable collection names.
	Collections []string
}

func (*LegacyPipeline) isModel() {}

// Bundle wraps a pipeline with a synonym vocabulary mapping user words to
// canonical collection names, and a confidence floor below which the
// intent is discarded as unknown.
type Bundle struct {
	Pipeline   *LegacyPipeline
	Vocabulary map[string]string
	Threshold  float64
}

func (*Bundle) isModel() {}

// DefaultPipeline covers the school-district domain out of the box.
func DefaultPipeline() *LegacyPipeline {
	return &LegacyPipeline{
		Operations: map[string]string{
			"query":  "read",
			"show":   "read",
			"list":   "read",
			"find":   "read",
			"get":    "read",
			"add":    "create",
			"create": "create",
			"new":    "create",
			"update": "update",
			"change": "update",
			"set":    "update",
			"delete": "delete",
			"remove": "delete",
			"drop":   "delete",
		},
		Collections: []string{"students", "teachers", "grades", "classes", "schools"},
	}
}

// Classifier runs a model over user input.
type Classifier struct {
	model  Model
	logger *zap.Logger
}

// New creates a classifier over the given model. A nil model falls back
// to the default pipeline.
func New(model Model, logger *zap.Logger) *Classifier {
	if model == nil {
		model = DefaultPipeline()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		model:  model,
		logger: logger.With(zap.String("component", "intent_classifier")),
	}
}

// Classify maps text to an intent. This is the single dispatch point over
// the model variant.
func (c *Classifier) Classify(text string) Intent {
	var intent Intent
	switch m := c.model.(type) {
	case *LegacyPipeline:
		intent = classifyPipeline(m, text)
	case *Bundle:
		intent = classifyBundle(m, text)
	}

	c.logger.Debug("classified input",
		zap.String("operation", intent.Operation),
		zap.String("collection", intent.Collection),
		zap.Float64("confidence", intent.Confidence))
	return intent
}

func classifyPipeline(m *LegacyPipeline, text string) Intent {
	words := strings.Fields(strings.ToLower(text))
	intent := Intent{}

	for _, w := range words {
		if op, ok := m.Operations[w]; ok && intent.Operation == "" {
			intent.Operation = op
		}
		for _, coll := range m.Collections {
			if w == coll && intent.Collection == "" {
				intent.Collection = coll
			}
		}
	}

	switch {
	case intent.Operation != "" && intent.Collection != "":
		intent.Confidence = 0.9
	case intent.Collection != "":
		// A bare collection mention defaults to a read.
		intent.Operation = "read"
		intent.Confidence = 0.6
	default:
		intent = Intent{}
	}
	return intent
}

func classifyBundle(m *Bundle, text string) Intent {
	pipeline := m.Pipeline
	if pipeline == nil {
		pipeline = DefaultPipeline()
	}

	// Canonicalize through the vocabulary before the pipeline runs.
	words := strings.Fields(strings.ToLower(text))
	for i, w := range words {
		if canonical, ok := m.Vocabulary[w]; ok {
			words[i] = canonical
		}
	}

	intent := classifyPipeline(pipeline, strings.Join(words, " "))
	if intent.Confidence < m.Threshold {
		return Intent{}
	}
	return intent
}
