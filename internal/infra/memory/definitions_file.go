package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"quiz-attempt-service/internal/domain"
)

type definitionsFile struct {
	Quizzes []domain.QuizDefinition `yaml:"quizzes"`
}

// LoadDefinitionsFile reads quiz definitions from a YAML document of the form
// `quizzes: [...]`. Every definition is validated; the first error is returned.
func LoadDefinitionsFile(path string) (map[string]domain.QuizDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDefinitions(data)
}

// ParseDefinitions decodes and validates a YAML definitions document.
func ParseDefinitions(data []byte) (map[string]domain.QuizDefinition, error) {
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode definitions: %w", err)
	}
	out := make(map[string]domain.QuizDefinition, len(file.Quizzes))
	for _, def := range file.Quizzes {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("quiz %q: %w", def.ID, err)
		}
		if _, dup := out[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate quiz id %q", domain.ErrMalformedDefinition, def.ID)
		}
		out[def.ID] = def
	}
	return out, nil
}
