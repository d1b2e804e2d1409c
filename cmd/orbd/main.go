package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kagami-orb/internal/config"
	"kagami-orb/internal/location"
	"kagami-orb/internal/orb"
	"kagami-orb/internal/telemetry"
	"kagami-orb/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./orb.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sys := orb.Build(cfg)
	defer sys.Close()

	for _, p := range orb.Validate(sys) {
		log.Printf("orbd: degraded: %s", p)
	}

	status := web.NewStatus()
	status.SetPlatform(sys.Caps.Platform)
	locations := web.NewLocationBroadcaster()

	var pub *telemetry.Publisher
	if cfg.Telemetry.Enable {
		pub, err = telemetry.New(telemetry.Config{
			Broker:   cfg.Telemetry.Broker,
			ClientID: cfg.Telemetry.ClientID,
		})
		if err != nil {
			// Telemetry is not worth refusing to start over.
			log.Printf("orbd: telemetry disabled: %v", err)
			pub = nil
		} else {
			defer pub.Close()
		}
	}

	log.Printf("orbd starting platform=%s", sys.Caps.Platform)

	if sys.Location != nil {
		sys.Location.Subscribe(func(u location.Update) {
			uc := u
			status.SetLocation(&uc)
			locations.Publish(&uc)
			if pub != nil {
				if err := pub.PublishLocation(&uc); err != nil {
					log.Printf("orbd: publish location: %v", err)
				}
			}
		})
		go sys.Location.Run(ctx, cfg.Location.Interval)
	}

	if sys.Cellular != nil {
		sys.Cellular.Start(ctx)
	}

	// One slow loop refreshes the snapshot-only subsystems.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			refreshStatus(sys, status, pub)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	if cfg.Web.Enable {
		go func() {
			if err := web.Serve(ctx, cfg.Web.Listen, status, locations); err != nil && ctx.Err() == nil {
				log.Printf("orbd: web server stopped: %v", err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	log.Printf("orbd stopping")
}

func refreshStatus(sys *orb.System, status *web.Status, pub *telemetry.Publisher) {
	if sys.Cellular != nil {
		cs := sys.Cellular.Status()
		status.SetCellular(cs)
		if pub != nil {
			if err := pub.PublishCellular(cs); err != nil {
				log.Printf("orbd: publish cellular: %v", err)
			}
		}
	}
	if sys.Power != nil {
		if ps, err := sys.Power.Snapshot(); err == nil {
			status.SetPower(ps)
			if pub != nil {
				if err := pub.PublishPower(ps); err != nil {
					log.Printf("orbd: publish power: %v", err)
				}
			}
		}
	}
	if sys.PPS != nil {
		status.SetPPS(sys.PPS.Stats())
	}
}
