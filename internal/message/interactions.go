package message

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidInteractions = errors.New("invalid interactions payload")

// maxDefaultReactions bounds the preset reaction list on a message.
const maxDefaultReactions = 20

// BasicValidator enforces structural limits on the interactions payload.
type BasicValidator struct{}

func (BasicValidator) Validate(_ context.Context, in *Interactions) error {
	if len(in.Reactions) > maxDefaultReactions {
		return fmt.Errorf("%w: at most %d preset reactions", ErrInvalidInteractions, maxDefaultReactions)
	}
	if in.RestrictReactions && len(in.Reactions) == 0 {
		return fmt.Errorf("%w: restricted reactions require a preset list", ErrInvalidInteractions)
	}
	seen := make(map[string]bool, len(in.Reactions))
	for _, r := range in.Reactions {
		if r == "" {
			return fmt.Errorf("%w: empty reaction", ErrInvalidInteractions)
		}
		if seen[r] {
			return fmt.Errorf("%w: duplicate reaction %q", ErrInvalidInteractions, r)
		}
		seen[r] = true
	}
	return nil
}
