// Command serprog is the CLI front end for the serial bootloader
// programmer: it opens a serial port, prepares a programming session
// against a target device, and drives it to completion, logging the
// progress reporter's line and an elapsed-time line for every step.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/serprog/serprog/pkg/device"
	"github.com/serprog/serprog/pkg/progress"
	serprogredis "github.com/serprog/serprog/pkg/redis"
	"github.com/serprog/serprog/pkg/serialtransport"
	"github.com/serprog/serprog/pkg/session"
	"github.com/serprog/serprog/pkg/transport"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "prog":
		err = runProg(os.Args[2:])
	case "print-devices", "pd":
		err = runPrintDevices()
	case "print-ports", "pp":
		err = runPrintPorts()
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "serprog: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: serprog <prog|print-devices|pd|print-ports|pp> [flags]")
}

func runProg(args []string) error {
	fs := flag.NewFlagSet("prog", flag.ExitOnError)
	port := fs.String("port", "", "serial port path (required)")
	deviceFlag := fs.String("device", "auto", "device name or numeric id")
	flashPath := fs.String("flash", "", "internal flash HEX image")
	extFlashPath := fs.String("extflash", "", "external flash HEX image")
	extFlashBoot := fs.Bool("extflash_boot", false, "copy staged external flash image into internal flash")
	eepromPath := fs.String("eeprom", "", "EEPROM HEX image")
	redisAddr := fs.String("redis-addr", "", "Redis address for live progress telemetry (disabled if empty)")
	redisPub := fs.Bool("redis-pub", false, "publish progress telemetry to Redis (requires -redis-addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *port == "" {
		return fmt.Errorf("-port is required")
	}

	deviceID, ok := device.Resolve(*deviceFlag)
	if !ok {
		return &device.TypeError{Requested: *deviceFlag}
	}

	tr, err := serialtransport.Open(*port)
	if err != nil {
		return fmt.Errorf("opening %s: %w", *port, err)
	}
	defer tr.Close()

	reporter := buildReporter(*redisAddr, *redisPub)

	sess, err := session.New(tr, transport.RealClock{}, reporter, session.Options{
		DeviceID:     deviceID,
		FlashPath:    *flashPath,
		ExtFlashPath: *extFlashPath,
		EepromPath:   *eepromPath,
		ExtFlashBoot: *extFlashBoot,
	})
	if err != nil {
		return err
	}

	log.Printf("session %s: device=%s total_steps=%d estimated=%.1fs",
		sess.SessionID(), sess.Device().Name, sess.TotalSteps(), sess.EstimatedSeconds())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	start := time.Now()
	for !sess.Done() {
		select {
		case <-sigCh:
			log.Printf("signal received, aborting session %s after %d/%d steps", sess.SessionID(), sess.CurStep(), sess.TotalSteps())
			return fmt.Errorf("aborted by signal after %d/%d steps", sess.CurStep(), sess.TotalSteps())
		default:
		}

		if err := sess.Step(); err != nil {
			return fmt.Errorf("step %d/%d: %w", sess.CurStep(), sess.TotalSteps(), err)
		}
		log.Printf("step %d/%d (%s elapsed)", sess.CurStep(), sess.TotalSteps(), time.Since(start).Round(time.Millisecond))
	}

	log.Printf("session %s complete in %s", sess.SessionID(), time.Since(start).Round(time.Millisecond))
	return nil
}

func buildReporter(redisAddr string, redisPub bool) progress.Reporter {
	reporters := progress.MultiReporter{progress.LogReporter{}}
	if redisPub {
		if redisAddr == "" {
			log.Printf("warning: -redis-pub set without -redis-addr, skipping Redis telemetry")
			return reporters
		}
		client, err := serprogredis.New(redisAddr, "", 0)
		if err != nil {
			log.Printf("warning: failed to connect to Redis at %s: %v", redisAddr, err)
			return reporters
		}
		reporters = append(reporters, progress.NewRedisReporter(client))
	}
	return reporters
}

func runPrintDevices() error {
	for _, d := range device.All() {
		fmt.Printf("%d\t%s\tprotocol=%d\tuserapp=0x%08x+0x%x\t%s\n",
			d.ID, d.Name, d.ProtocolVersion, d.UserAppStart, d.UserAppSize, d.Note)
	}
	return nil
}

func runPrintPorts() error {
	ports, err := serialtransport.ListPorts()
	if err != nil {
		return err
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
