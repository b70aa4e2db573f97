package led

import (
	"fmt"

	"led-service/internal/model"
)

// Interval bounds accepted for blink and rainbow timing, in milliseconds
const (
	MinIntervalMs = 50
	MaxIntervalMs = 5000
)

// ResolveAction picks exactly one action from the request using the fixed
// order on > off > rainbow > blink > color, and resolves its colors.
func ResolveAction(req model.ActionRequest) (model.ResolvedAction, error) {
	if req.Interval != nil {
		if err := ValidateInterval(*req.Interval); err != nil {
			return model.ResolvedAction{}, err
		}
	}

	kind, ok := selectKind(req)
	if !ok && req.SecondColor != "" {
		return model.ResolvedAction{}, fmt.Errorf("%w: second color is only valid with blink",
			model.ErrInvalidCombination)
	}
	if !ok {
		return model.ResolvedAction{}, fmt.Errorf("%w: use one of on, off, color, blink or rainbow",
			model.ErrNoActionSpecified)
	}

	if req.SecondColor != "" && kind != model.ActionBlink {
		return model.ResolvedAction{}, fmt.Errorf("%w: second color is only valid with blink",
			model.ErrInvalidCombination)
	}

	action := model.ResolvedAction{Kind: kind, Request: req}

	switch kind {
	case model.ActionSetColor:
		c, err := ParseColor(req.Color)
		if err != nil {
			return model.ResolvedAction{}, err
		}
		action.Primary = c

	case model.ActionBlink:
		primary, err := blinkPrimary(req)
		if err != nil {
			return model.ResolvedAction{}, err
		}
		action.Primary = primary
		action.IntervalMs = intervalOf(req)

		if req.SecondColor != "" {
			second, err := ParseColor(req.SecondColor)
			if err != nil {
				return model.ResolvedAction{}, err
			}
			action.Kind = model.ActionBlink2
			action.Secondary = second
		}

	case model.ActionRainbow:
		action.IntervalMs = intervalOf(req)
	}

	return action, nil
}

// ValidateInterval checks a caller supplied timing value
func ValidateInterval(ms int) error {
	if ms < MinIntervalMs || ms > MaxIntervalMs {
		return fmt.Errorf("%w: %d ms is outside %d-%d ms",
			model.ErrInvalidInterval, ms, MinIntervalMs, MaxIntervalMs)
	}
	return nil
}

func selectKind(req model.ActionRequest) (model.ActionKind, bool) {
	switch {
	case req.On:
		return model.ActionTurnOn, true
	case req.Off:
		return model.ActionTurnOff, true
	case req.Rainbow:
		return model.ActionRainbow, true
	case req.Blink != nil:
		return model.ActionBlink, true
	case req.Color != "":
		return model.ActionSetColor, true
	}
	return "", false
}

// blinkPrimary prefers the color carried by the blink flag, then color, then white
func blinkPrimary(req model.ActionRequest) (model.RgbColor, error) {
	switch {
	case req.Blink != nil && req.Blink.Color != "":
		return ParseColor(req.Blink.Color)
	case req.Color != "":
		return ParseColor(req.Color)
	}
	return model.White, nil
}

func intervalOf(req model.ActionRequest) int {
	if req.Interval == nil {
		return 0
	}
	return *req.Interval
}
