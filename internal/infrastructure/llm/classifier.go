package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
	"ConceptEnricher/internal/textnorm"
)

const defaultAffirmative = "yes"

// PromptClassifier asks an Oracle a yes/no question about a phrase and looks for
// the affirmative token as a whole word in the normalised reply.
type PromptClassifier struct {
	oracle ports.Oracle
	prompt string
	token  string
	logger *slog.Logger
}

var _ ports.Classifier = (*PromptClassifier)(nil)

func NewPromptClassifier(oracle ports.Oracle, prompt, affirmative string, logger *slog.Logger) *PromptClassifier {
	if strings.TrimSpace(affirmative) == "" {
		affirmative = defaultAffirmative
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PromptClassifier{
		oracle: oracle,
		prompt: prompt,
		token:  affirmative,
		logger: logger,
	}
}

// Classify returns an error only when the oracle could not be reached; an empty reply is a negative verdict.
func (c *PromptClassifier) Classify(ctx context.Context, phrase string) (domain.RelevanceJudgment, error) {
	judgment := domain.RelevanceJudgment{Phrase: phrase}
	if c.oracle == nil {
		return judgment, fmt.Errorf("classifier has no oracle")
	}

	raw, err := c.oracle.Generate(ctx, c.render(phrase))
	if err != nil {
		return judgment, fmt.Errorf("classify %q: %w", phrase, err)
	}
	judgment.Raw = raw
	judgment.Relevant = textnorm.ContainsWord(raw, c.token)
	c.logger.Debug("oracle reply", "phrase", phrase, "raw", raw, "relevant", judgment.Relevant)
	return judgment, nil
}

func (c *PromptClassifier) render(phrase string) string {
	prompt := safePrompt(c.prompt)
	phrase = textnorm.Normalize(phrase)
	if strings.Contains(prompt, "%s") {
		return strings.Replace(prompt, "%s", phrase, 1)
	}
	return prompt + "\n\n" + phrase
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "Is the following term a biological or biomedical concept? Answer only yes or no.\n\n%s"
	}
	return prompt
}
