// internal/board/registry.go
package board

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"led-service/internal/model"
)

// Registry holds the known board definitions keyed by ID
type Registry struct {
	boards map[string]*model.Board
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		boards: make(map[string]*model.Board),
		logger: logger,
	}
}

// Register adds or replaces a board definition
func (r *Registry) Register(b *model.Board) error {
	if err := validateBoard(b); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.boards[b.ID]; exists {
		r.logger.Info("Board definition replaced", zap.String("board", b.ID))
	}
	r.boards[b.ID] = b

	r.logger.Debug("Board registered",
		zap.String("board", b.ID),
		zap.String("led_type", string(b.Led.Type)),
		zap.String("variant", string(b.Variant())),
	)
	return nil
}

// Get returns the board with the given ID
func (r *Registry) Get(id string) (*model.Board, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.boards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrBoardNotFound, id)
	}
	return b, nil
}

// List returns all boards sorted by ID
func (r *Registry) List() []*model.Board {
	r.mu.RLock()
	defer r.mu.RUnlock()

	boards := make([]*model.Board, 0, len(r.boards))
	for _, b := range r.boards {
		boards = append(boards, b)
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].ID < boards[j].ID })
	return boards
}

func validateBoard(b *model.Board) error {
	if b == nil || b.ID == "" {
		return fmt.Errorf("%w: id is required", model.ErrInvalidBoardSpec)
	}

	switch b.Led.Type {
	case model.LedTypeWS2812, model.LedTypeDigital:
	default:
		return fmt.Errorf("%w: board %s has unknown led type %q", model.ErrInvalidBoardSpec, b.ID, b.Led.Type)
	}

	if b.Serial.BaudRate < 0 {
		return fmt.Errorf("%w: board %s has negative baud rate", model.ErrInvalidBoardSpec, b.ID)
	}
	return nil
}
