package customization

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeBound = errors.New("Os limites da regra não podem ser negativos")
	ErrInvertedBound = errors.New("O mínimo da regra é maior que o máximo")
	ErrEmptyCategory = errors.New("Informe a categoria da regra")
	ErrDuplicateRule = errors.New("Já existe uma regra para a categoria")
)

// Rule limita a soma das quantidades escolhidas de uma categoria ao intervalo [MinQuantity, MaxQuantity].
type Rule struct {
	Category    string `json:"category"`
	MinQuantity int    `json:"min_quantity"`
	MaxQuantity int    `json:"max_quantity"`
}

// Item é uma linha da seleção do cliente. Category vem sempre do catálogo, nunca do cliente.
type Item struct {
	ProductID uint   `json:"product_id"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
}

type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate confere a seleção contra todas as regras do plano.
// Nenhuma regra é pulada: categoria sem itens conta como zero.
func Validate(rules []Rule, items []Item) Result {
	counts := Counts(rules, items)

	errs := make([]string, 0)
	for _, rule := range rules {
		count := counts[rule.Category]
		switch {
		case count < rule.MinQuantity:
			errs = append(errs, fmt.Sprintf("Selecione pelo menos %d item(ns) da categoria \"%s\"", rule.MinQuantity, rule.Category))
		case count > rule.MaxQuantity:
			errs = append(errs, fmt.Sprintf("Selecione no máximo %d item(ns) da categoria \"%s\"", rule.MaxQuantity, rule.Category))
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// Counts soma as quantidades por categoria de regra. Quantidades <= 0 contam como não selecionadas.
func Counts(rules []Rule, items []Item) map[string]int {
	counts := make(map[string]int, len(rules))
	for _, rule := range rules {
		counts[rule.Category] = 0
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if _, ok := counts[item.Category]; ok {
			counts[item.Category] += item.Quantity
		}
	}
	return counts
}

// Uncovered lista os produtos escolhidos cuja categoria não tem regra no plano.
func Uncovered(rules []Rule, items []Item) []string {
	covered := make(map[string]bool, len(rules))
	for _, rule := range rules {
		covered[rule.Category] = true
	}

	var msgs []string
	for _, item := range items {
		if item.Quantity <= 0 || covered[item.Category] {
			continue
		}
		msgs = append(msgs, fmt.Sprintf("O produto %d não pode ser escolhido neste plano", item.ProductID))
	}
	return msgs
}

// ValidateRules é usado na edição de planos pelo admin.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if rule.Category == "" {
			return ErrEmptyCategory
		}
		if rule.MinQuantity < 0 || rule.MaxQuantity < 0 {
			return fmt.Errorf("%w: %s", ErrNegativeBound, rule.Category)
		}
		if rule.MinQuantity > rule.MaxQuantity {
			return fmt.Errorf("%w: %s", ErrInvertedBound, rule.Category)
		}
		if seen[rule.Category] {
			return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.Category)
		}
		seen[rule.Category] = true
	}
	return nil
}
