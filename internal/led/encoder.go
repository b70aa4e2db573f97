package led

import (
	"fmt"
	"strconv"

	"led-service/internal/model"
)

// Default timings applied when the caller omits an interval
const (
	DefaultBlinkIntervalMs   = 500
	DefaultRainbowIntervalMs = 50
)

// Wire command keywords understood by the firmware
const (
	cmdOn      = "ON"
	cmdOff     = "OFF"
	cmdColor   = "COLOR"
	cmdBlink1  = "BLINK1"
	cmdBlink2  = "BLINK2"
	cmdRainbow = "RAINBOW"
	cmdBlink   = "BLINK"
)

// Encode renders the action into the wire command for the given variant.
// Parameters the variant cannot express are dropped and reported in the
// returned warnings.
func Encode(action model.ResolvedAction, variant model.ProtocolVariant) (model.WireCommand, []string) {
	if variant == model.VariantBinaryOnly {
		return encodeBinary(action)
	}
	return encodeFullColor(action), nil
}

func encodeFullColor(action model.ResolvedAction) model.WireCommand {
	switch action.Kind {
	case model.ActionTurnOff:
		return frame(cmdOff)
	case model.ActionSetColor:
		return frame(cmdColor, action.Primary.String())
	case model.ActionBlink:
		return frame(cmdBlink1, action.Primary.String(),
			strconv.Itoa(orDefault(action.IntervalMs, DefaultBlinkIntervalMs)))
	case model.ActionBlink2:
		return frame(cmdBlink2, action.Primary.String(), action.Secondary.String(),
			strconv.Itoa(orDefault(action.IntervalMs, DefaultBlinkIntervalMs)))
	case model.ActionRainbow:
		return frame(cmdRainbow, strconv.Itoa(orDefault(action.IntervalMs, DefaultRainbowIntervalMs)))
	default:
		return frame(cmdOn)
	}
}

func encodeBinary(action model.ResolvedAction) (model.WireCommand, []string) {
	var warnings []string

	switch action.Kind {
	case model.ActionTurnOn:
		return frame(cmdOn), nil

	case model.ActionTurnOff:
		return frame(cmdOff), nil

	case model.ActionSetColor:
		if action.Primary != model.White {
			warnings = append(warnings, fmt.Sprintf(
				"digital LED ignores colors: color %s dropped, turning LED on", action.Primary))
		}
		return frame(cmdOn), warnings

	case model.ActionBlink:
		if action.Primary != model.White {
			warnings = append(warnings, fmt.Sprintf(
				"digital LED ignores colors: blink color %s dropped", action.Primary))
		}
		return frame(cmdBlink), append(warnings, intervalWarning(action)...)

	case model.ActionBlink2:
		warnings = append(warnings, fmt.Sprintf(
			"digital LED ignores colors: blink colors %s and %s dropped, using single blink",
			action.Primary, action.Secondary))
		return frame(cmdBlink), append(warnings, intervalWarning(action)...)

	case model.ActionRainbow:
		warnings = append(warnings, "rainbow effect is not supported by a digital LED, using blink instead")
		return frame(cmdBlink), append(warnings, intervalWarning(action)...)
	}

	return frame(cmdOn), nil
}

func intervalWarning(action model.ResolvedAction) []string {
	if action.Request.Interval == nil {
		return nil
	}
	return []string{fmt.Sprintf("digital LED firmware uses a fixed blink rate: interval %d ms dropped",
		*action.Request.Interval)}
}

func frame(keyword string, params ...string) model.WireCommand {
	line := keyword
	for _, p := range params {
		line += "," + p
	}
	return model.WireCommand(line + "\n")
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
