// Command usartpty runs firmware against an emulated USART2 and exposes the
// serial line as a pseudo terminal.
//
// Connect any terminal program to the printed device, or start one with
// -exec. Bytes typed there are received by the firmware, bytes it sends show
// up in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/aymanbagabas/go-pty"
	"github.com/buildkite/shellwords"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/clktmr/usart/mcu/gpio"
	"github.com/clktmr/usart/mcu/rcc"
	"github.com/clktmr/usart/mcu/usart"
	"github.com/clktmr/usart/mcu/usart/emu"
)

const usageString = `USART emulator on a pseudo terminal.

Usage: %s [flags]

The modes are:

	echo	send back every received byte
	upper	send back received lines in upper case, using DMA
	frame	acknowledge every received frame with a frame, using DMA

`

var (
	mode    = flag.String("mode", "echo", "firmware to run: echo | upper | frame")
	command = flag.String("exec", "", "run `command` with the pseudo terminal as its controlling terminal")
	charset = flag.String("charset", "", "IANA `name` of the character set the firmware uses")
	baud    = flag.Uint("baud", 115200, "baud rate")
)

var clocks = rcc.Clocks{SYSCLK: 168e6, HCLK: 168e6, PCLK1: 42e6, PCLK2: 84e6}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), usageString, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	log.Default().SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	fw, ok := firmwares[*mode]
	if !ok || flag.NArg() != 0 {
		flag.Usage()
		os.Exit(1)
	}

	p, err := pty.New()
	if err != nil {
		log.Fatalln("open pty:", err)
	}
	defer p.Close()
	if err := makeRaw(p.Name()); err != nil {
		log.Fatalln("raw mode:", err)
	}

	var line io.ReadWriter = p
	if *charset != "" {
		line, err = transcode(p, *charset)
		if err != nil {
			log.Fatalln("charset:", err)
		}
	}

	_, rx, tx := usart.USART2.DMA()
	m := emu.New(rx, tx)
	defer m.Close()
	m.SetOutput(line)

	v := usart.USART2.Relocate(&m.USART, &m.DMA)
	dev, err := v.Init(clocks.Baud(uint32(*baud)), &m.DMA, new(gpio.PortA), new(gpio.PortD), &m.RCC, clocks)
	if err != nil {
		log.Fatalln("init:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return fw(ctx, m, dev)
	})
	g.Go(func() error {
		buf := make([]byte, 64)
		for {
			n, err := line.Read(buf)
			m.Feed(buf[:n])
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				return err
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		p.Close()
		return ctx.Err()
	})

	if *command != "" {
		g.Go(func() error {
			return run(p, *command)
		})
	} else {
		log.Printf("%s: USART2 at %s", *mode, p.Name())
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errDone) {
		log.Fatalln(err)
	}
}

var errDone = errors.New("command exited")

// run starts command on the pty and waits for it. Its exit ends the session.
func run(p pty.Pty, command string) error {
	args, err := shellwords.Split(command)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if len(args) == 0 {
		return errors.New("exec: empty command")
	}
	cmd := p.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return errDone
}

type transcoder struct {
	io.Reader
	io.Writer
}

// transcode converts between UTF-8 on the terminal side and the named charset
// on the line.
func transcode(rw io.ReadWriter, name string) (io.ReadWriter, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("%s: unsupported", name)
	}
	return transcoder{
		Reader: transform.NewReader(rw, enc.NewEncoder()),
		Writer: transform.NewWriter(rw, enc.NewDecoder()),
	}, nil
}
