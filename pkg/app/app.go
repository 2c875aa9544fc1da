package app

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"adiod/pkg/adi"
	"adiod/pkg/app/config"
	"adiod/pkg/hal"
	"adiod/pkg/mqtt"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Webserver.URL parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// hw is the raw hardware backend behind the ADI ports
	hw hal.Raw

	// adi is the port engine
	adi *adi.Engine

	// restart signals application restart
	restart chan struct{}
	// shutdown signals application shutdown
	shutdown chan struct{}
}

// New checks the web server URL and initializes the main app structure.
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:  fiber.New(),
		mqtt: mqtt.New(),

		restart:  make(chan struct{}),
		shutdown: make(chan struct{}),
	}, err
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	go app.telemetry()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if app.hw, err = hal.Open(app.config.HAL, app.config.Lines, app.config.BounceTime); err != nil {
		debug.ErrorLog.Printf("can't open hal backend %q: %v", app.config.HAL, err)
		return err
	}

	app.adi = adi.New(app.hw)
	app.adi.CalibrationSamples = app.config.Calibration.Samples
	app.adi.CalibrationInterval = app.config.Calibration.Interval

	if err = app.mqtt.Connect(app.config.MQTT.Connection, MODULE); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initDefaultRoutes should always be called last because it may access
	// things which must be initialized before
	app.initDefaultRoutes()

	return nil
}

// Restart returns the read only restart channel.
// Restart is used to be able to react on application restart. (see cmd/adiod.go)
func (app *App) Restart() <-chan struct{} {
	return app.restart
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/adiod.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

func (app *App) Close() error {
	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}

	if app.hw != nil {
		_ = app.hw.Close()
	}
	return nil
}
