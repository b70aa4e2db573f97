package board

import (
	"go.uber.org/zap"

	"led-service/internal/model"
)

// builtinBoards are always available, even without a boards directory
var builtinBoards = []model.Board{
	{
		ID:     "arduino-uno",
		Name:   "Arduino Uno",
		FQBN:   "arduino:avr:uno",
		Led:    model.BoardLed{Type: model.LedTypeDigital, Pin: 13},
		Serial: model.BoardSerial{BaudRate: 9600},
	},
	{
		ID:     "arduino-nano",
		Name:   "Arduino Nano",
		FQBN:   "arduino:avr:nano",
		Led:    model.BoardLed{Type: model.LedTypeDigital, Pin: 13},
		Serial: model.BoardSerial{BaudRate: 9600},
	},
	{
		ID:     "esp32-ws2812",
		Name:   "ESP32 with WS2812 LED",
		FQBN:   "esp32:esp32:esp32",
		Led:    model.BoardLed{Type: model.LedTypeWS2812, Pin: 48},
		Serial: model.BoardSerial{BaudRate: 9600},
	},
}

// RegisterDefaultBoards registers the built-in board definitions
func RegisterDefaultBoards(registry *Registry, logger *zap.Logger) {
	for i := range builtinBoards {
		b := builtinBoards[i]
		if err := registry.Register(&b); err != nil {
			logger.Error("Failed to register built-in board", zap.String("board", b.ID), zap.Error(err))
		}
	}
}
