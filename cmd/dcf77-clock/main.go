// Command dcf77-clock decodes the DCF77 time signal from a receiver module on
// a GPIO line and publishes each decoded minute to MQTT and a status page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweeney/dcf77-clock/internal/config"
	"github.com/sweeney/dcf77-clock/internal/dcf77"
	"github.com/sweeney/dcf77-clock/internal/discovery"
	"github.com/sweeney/dcf77-clock/internal/gpio"
	"github.com/sweeney/dcf77-clock/internal/metrics"
	"github.com/sweeney/dcf77-clock/internal/mqtt"
	"github.com/sweeney/dcf77-clock/internal/pulse"
	"github.com/sweeney/dcf77-clock/internal/status"
	"github.com/sweeney/dcf77-clock/internal/tick"
	"github.com/sweeney/dcf77-clock/internal/web"
)

func main() {
	def := config.NewDefault()

	configPath := flag.String("config", "", "YAML config file (flags given on the command line take precedence)")
	pin := flag.Int("pin", def.GPIO.Pin, "BCM pin number of the receiver output")
	pinLED := flag.Int("pin-led", def.GPIO.LEDPin, "BCM pin number of the pulse LED (-1 to disable)")
	invert := flag.Bool("invert", def.GPIO.Invert, "Treat a low line as the active pulse")
	poll := flag.Duration("poll", def.GPIO.Poll, "Pause between line reads (0 spins)")
	broker := flag.String("broker", def.MQTT.Broker, "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", def.MQTT.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	mdns := flag.String("mdns", def.MDNS.Instance, "mDNS instance name for the status page (empty to disable)")
	printLevel := flag.Bool("print-level", false, "Print the current line level and exit")

	flag.Parse()

	cfg := config.NewDefault()
	if *configPath != "" {
		if err := config.Load(*configPath, cfg); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pin":
			cfg.GPIO.Pin = *pin
		case "pin-led":
			cfg.GPIO.LEDPin = *pinLED
		case "invert":
			cfg.GPIO.Invert = *invert
		case "poll":
			cfg.GPIO.Poll = *poll
		case "broker":
			cfg.MQTT.Broker = *broker
		case "heartbeat":
			cfg.MQTT.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "mdns":
			cfg.MDNS.Instance = *mdns
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid configuration: %v", err)
	}

	if err := run(cfg, *printLevel); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printLevel bool) error {
	line, err := gpio.NewRealLine(gpio.Options{
		Chip:   cfg.GPIO.Chip,
		Pin:    cfg.GPIO.Pin,
		Invert: cfg.GPIO.Invert,
		PullUp: cfg.GPIO.Invert,
	})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer line.Close()

	if printLevel {
		high, err := line.Level()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("GPIO%d: %s\n", cfg.GPIO.Pin, levelString(high))
		return nil
	}

	var led gpio.Indicator = gpio.NopIndicator{}
	if cfg.GPIO.LEDPin >= 0 {
		ind, err := gpio.NewRealIndicator(cfg.GPIO.Chip, cfg.GPIO.LEDPin)
		if err != nil {
			return fmt.Errorf("init led: %w", err)
		}
		defer ind.Close()
		led = ind
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meter := pulse.NewMeter(line, tick.NewCounter(), led, cfg.GPIO.Poll)

	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Pin:         cfg.GPIO.Pin,
		Invert:      cfg.GPIO.Invert,
		PollMs:      cfg.GPIO.Poll.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP.Addr,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	m := metrics.New()
	m.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	var hub *web.Hub
	if cfg.HTTP.Addr != "" {
		hub = web.NewHub(func() []byte { return status.FormatJSON(tracker.Snapshot()) })
		go hub.Run(ctx)

		srv := web.New(cfg.HTTP.Addr, tracker, m.Handler(), hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)

		if cfg.MDNS.Instance != "" {
			adv := discovery.New(cfg.MDNS.Instance, cfg.HTTP.Port(), "path=/", "json=/index.json")
			if err := adv.Start(); err != nil {
				log.Printf("mdns disabled: %v", err)
			} else {
				defer adv.Stop()
			}
		}
	}

	log.Printf("started: pin=%d invert=%v poll=%v broker=%s heartbeat=%v",
		cfg.GPIO.Pin, cfg.GPIO.Invert, cfg.GPIO.Poll, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(ctx, meter, publisher, publisher, tracker, m, hub, cfg.MQTT.Heartbeat, time.Now, sigCh)
}

// Measurer produces one measured second per call. It blocks for about a
// second and returns an error wrapping ctx.Err() once ctx is done.
type Measurer interface {
	Measure(ctx context.Context) (dcf77.Cycle, error)
}

// measureRetry is how long the loop waits after a failed measurement.
var measureRetry = 100 * time.Millisecond

func runLoop(ctx context.Context, meter Measurer, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, m *metrics.Metrics, hub *web.Hub, heartbeat time.Duration, now func() time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reason := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			reason <- signalName(s)
			cancel()
		case <-ctx.Done():
		}
	}()

	receiver := dcf77.NewReceiver(now())

	for {
		c, err := meter.Measure(ctx)
		if err != nil {
			if ctx.Err() != nil {
				shutdown(publisher, mqttStatus, tracker, now, reason)
				return nil
			}
			log.Printf("measure error: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(measureRetry):
			}
			continue
		}

		t := now()
		wasSynced := receiver.IsSynced()
		minute, ev := receiver.Process(c, t)
		if m != nil {
			m.ObserveCycle(c, ev)
		}

		if ev == dcf77.EventMinuteMark {
			if minute == nil {
				log.Printf("minute mark: dropped unaligned frame, waiting for the next minute")
				if m != nil {
					m.ObserveDropped()
				}
			} else {
				logMinute(*minute)
				if tracker != nil {
					tracker.SetMinute(*minute)
				}
				if m != nil {
					m.ObserveMinute(*minute)
				}
				if err := publisher.Publish(*minute); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}
			if !wasSynced {
				log.Printf("synced to minute mark")
			}
		}

		connected, buffered := mqttState(mqttStatus)

		if receiver.IsSynced() {
			if hbData := receiver.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v cycles=%d frames=%d valid=%d",
					hbData.Uptime, hbData.Counts.Cycles, hbData.Counts.Frames, hbData.Counts.ValidFrames)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					tracker.SetMQTTConnected(connected)
					tracker.SetMQTTBuffered(buffered)
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(receiver.IsSynced(), receiver.Second(), hbData.Counts)
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}

		// Update status tracker for HTTP/websocket consumers
		if tracker != nil {
			tracker.Update(receiver.IsSynced(), receiver.Second(), receiver.CountsSnapshot())
			tracker.SetMQTTConnected(connected)
			tracker.SetMQTTBuffered(buffered)
			if hub != nil {
				hub.Broadcast(status.FormatJSON(tracker.Snapshot()))
			}
		}
		if m != nil {
			m.SetSynced(receiver.IsSynced())
			m.SetMQTTConnected(connected)
			m.SetMQTTBuffered(buffered)
		}
	}
}

// mqttState reads connectivity and, when the client keeps one, the offline backlog.
func mqttState(s mqtt.ConnectionStatus) (connected bool, buffered int) {
	if s == nil {
		return false, 0
	}
	if b, ok := s.(mqtt.BufferStatus); ok {
		buffered = b.Buffered()
	}
	return s.IsConnected(), buffered
}

func shutdown(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, reason <-chan string) {
	name := "CONTEXT_CANCELLED"
	select {
	case name = <-reason:
	default:
	}
	event := mqtt.SystemEvent{
		Timestamp: now(),
		Event:     "SHUTDOWN",
		Reason:    name,
		Retained:  true,
	}
	if tracker != nil {
		connected, buffered := mqttState(mqttStatus)
		tracker.SetMQTTConnected(connected)
		tracker.SetMQTTBuffered(buffered)
		event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", name)
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

func logMinute(m dcf77.Minute) {
	d := status.Render(m.Fields)
	if m.Fields.Valid() {
		log.Printf("minute: %s (%d bits)", d, m.Fields.FrameLen)
		return
	}
	var faults []string
	for _, nf := range m.Fields.Fields() {
		if nf.Fault != dcf77.FaultNone {
			faults = append(faults, nf.Name+"="+string(nf.Fault))
		}
	}
	log.Printf("minute: %s (%d bits, invalid: %v)", d, m.Fields.FrameLen, faults)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func levelString(high bool) string {
	if high {
		return "HIGH (pulse)"
	}
	return "LOW"
}

// networkEnvFile is written by pi-helper; values there win over the process environment.
var networkEnvFile = "/run/pi-helper.env"

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	fileEnv, err := godotenv.Read(networkEnvFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("network info: %v", err)
	}
	get := func(key string) string {
		if v, ok := fileEnv[key]; ok {
			return v
		}
		return os.Getenv(key)
	}

	s := get(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       get(envNetworkType),
		IP:         get(envNetworkIP),
		Status:     s,
		Gateway:    get(envNetworkGateway),
		WifiStatus: get(envNetworkWifiStatus),
		SSID:       get(envNetworkWifiSSID),
	}
}
