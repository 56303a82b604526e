// Package selection guarda no servidor a escolha em andamento de um checkout (plano, itens e
// preferência de salvar o cartão), identificada por um token opaco em cookie.
package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fruitbox_backend/pkg/customization"
)

const (
	CookieName = "selection_token"
	DefaultTTL = 24 * time.Hour
	keyPrefix  = "selection:"
)

var (
	ErrNotFound     = errors.New("Seleção não encontrada ou expirada")
	ErrInvalidToken = errors.New("invalid selection token")
)

// Selection é o estado de uma tentativa de checkout; termina quando o checkout é enviado
type Selection struct {
	PlanID            uint         `json:"plan_id"`
	Items             map[uint]int `json:"items"`
	SavePaymentMethod bool         `json:"save_payment_method"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Set ajusta a quantidade de um produto; quantidade <= 0 remove o item
func (s *Selection) Set(productID uint, qty int) {
	if s.Items == nil {
		s.Items = make(map[uint]int)
	}
	if qty <= 0 {
		delete(s.Items, productID)
		return
	}
	s.Items[productID] = qty
}

// ForRules resolve as categorias dos itens para o motor de regras
func (s *Selection) ForRules(categoryOf func(productID uint) (string, bool)) []customization.Item {
	ids := make([]uint, 0, len(s.Items))
	for id := range s.Items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make([]customization.Item, 0, len(ids))
	for _, id := range ids {
		category, ok := categoryOf(id)
		if !ok {
			continue
		}
		items = append(items, customization.Item{ProductID: id, Category: category, Quantity: s.Items[id]})
	}
	return items
}

type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewStore(client redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Connect abre o cliente a partir de uma URL redis:// e confirma com PING
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func NewToken() string {
	return uuid.NewString()
}

func key(token string) (string, error) {
	if _, err := uuid.Parse(token); err != nil {
		return "", ErrInvalidToken
	}
	return keyPrefix + token, nil
}

func (s *Store) Get(ctx context.Context, token string) (*Selection, error) {
	k, err := key(token)
	if err != nil {
		return nil, ErrNotFound
	}

	raw, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var sel Selection
	if err := json.Unmarshal(raw, &sel); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	if sel.Items == nil {
		sel.Items = make(map[uint]int)
	}
	return &sel, nil
}

// Save grava a seleção e renova o TTL
func (s *Store) Save(ctx context.Context, token string, sel *Selection) error {
	k, err := key(token)
	if err != nil {
		return err
	}
	sel.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	return s.client.Set(ctx, k, raw, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, token string) error {
	k, err := key(token)
	if err != nil {
		return nil
	}
	return s.client.Del(ctx, k).Err()
}
