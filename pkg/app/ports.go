package app

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"adiod/pkg/adi"
)

// HandlePorts is the web handler returning the state of all 8 ADI ports.
func (app *App) HandlePorts() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request ports")

		return ctx.JSON(app.adi.Snapshot())
	}
}

// HandlePort is the web handler returning the state of a single port.
// The port parameter is accepted as number (1-8) or letter ('a'-'h').
func (app *App) HandlePort() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Printf("web request port %q", ctx.Params("port"))

		p, ok := parsePortParam(ctx.Params("port"))
		if !ok {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{"error": adi.ErrInvalidPort.Error()})
		}

		cfg, err := app.adi.GetConfig(p)
		if err != nil {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		v, err := app.adi.GetValue(p)
		if err != nil {
			return ctx.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}

		return ctx.JSON(adi.PortStatus{Port: portNumber(p), Config: cfg.String(), Value: v})
	}
}

// parsePortParam maps a route parameter to a port identifier byte the
// engine understands.
func parsePortParam(s string) (byte, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > adi.NumPorts {
			return 0, false
		}
		return byte(n), true
	}

	if len(s) == 1 {
		return s[0], true
	}
	return 0, false
}

// portNumber maps a port identifier back to its 1-8 number.
func portNumber(p byte) int {
	switch {
	case p >= 'a' && p <= 'h':
		return int(p-'a') + 1
	case p >= 'A' && p <= 'H':
		return int(p-'A') + 1
	}
	return int(p)
}
