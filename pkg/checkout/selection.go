package checkout

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"fruitbox_backend/pkg/customization"
)

// Selected é um item escolhido pelo cliente, como gravado na metadata da sessão
type Selected struct {
	ProductID uint
	Quantity  int
}

// EncodeSelection serializa a escolha como {"<product_id>": quantidade}. A metadata do gateway
// limita cada valor a 500 caracteres, por isso o formato compacto.
func EncodeSelection(items []customization.Item) (string, error) {
	m := make(map[string]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		m[strconv.FormatUint(uint64(it.ProductID), 10)] += it.Quantity
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	if len(raw) > 500 {
		return "", fmt.Errorf("selection too large for session metadata (%d bytes)", len(raw))
	}
	return string(raw), nil
}

// DecodeSelection faz o caminho inverso, em ordem de produto
func DecodeSelection(raw string) ([]Selected, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]int
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}

	out := make([]Selected, 0, len(m))
	for k, qty := range m {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode selection: invalid product id %q", k)
		}
		out = append(out, Selected{ProductID: uint(id), Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}
