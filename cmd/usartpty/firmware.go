package main

import (
	"context"
	"log"
	"time"

	"github.com/clktmr/usart/drivers/frame"
	"github.com/clktmr/usart/mcu/dma"
	"github.com/clktmr/usart/mcu/usart"
	"github.com/clktmr/usart/mcu/usart/emu"
)

// A firmware runs until ctx is done. It must step the machine to make its DMA
// transfers progress.
type firmware func(ctx context.Context, m *emu.Machine, dev *usart.Device) error

var firmwares = map[string]firmware{
	"echo":  echo,
	"upper": upper,
	"frame": framed,
}

const idleTime = time.Millisecond

// idle waits a moment if the machine had nothing to do.
func idle(ctx context.Context, m *emu.Machine) error {
	if m.Step() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(idleTime):
		return nil
	}
}

// read returns the next received byte. Line errors are logged and skipped.
func read(ctx context.Context, m *emu.Machine, dev *usart.Device) (byte, error) {
	for {
		c, err := dev.Read()
		switch {
		case err == nil:
			return c, nil
		case err == usart.ErrWouldBlock:
			if err := idle(ctx, m); err != nil {
				return 0, err
			}
		case usart.IsLineError(err):
			log.Println(err)
			dev.Discard()
		default:
			return 0, err
		}
	}
}

func echo(ctx context.Context, m *emu.Machine, dev *usart.Device) error {
	for {
		c, err := read(ctx, m, dev)
		if err != nil {
			return err
		}
		for {
			err := dev.Write(c)
			if err == nil {
				break
			}
			if usart.IsLineError(err) {
				dev.Discard()
				continue
			}
			if err := idle(ctx, m); err != nil {
				return err
			}
		}
	}
}

// release waits for the transfer on buf to end and releases it.
func release[R dma.Role](ctx context.Context, m *emu.Machine, buf *dma.Buffer[R]) error {
	for {
		done, err := dma.Poll(buf)
		switch {
		case err == dma.ErrNotArmed:
			return nil
		case done:
			if err != nil {
				log.Println(err)
			}
			return buf.Release()
		}
		if err := idle(ctx, m); err != nil {
			return err
		}
	}
}

func upper(ctx context.Context, m *emu.Machine, dev *usart.Device) error {
	mem := make([]byte, 256)
	m.Attach(mem)
	tx := dev.NewTxBuffer(mem)
	line := make([]byte, 0, len(mem))

	for {
		c, err := read(ctx, m, dev)
		if err != nil {
			return err
		}
		line = append(line, c)
		if c != '\r' && c != '\n' && len(line) < cap(line) {
			continue
		}

		if err := release(ctx, m, tx); err != nil {
			return err
		}
		if err := tx.SetLen(len(line)); err != nil {
			return err
		}
		tx.Fill(func(p []byte) {
			for i, c := range line {
				if 'a' <= c && c <= 'z' {
					c -= 'a' - 'A'
				}
				p[i] = c
			}
		})
		if err := dev.WriteAll(dev.DMA(), tx); err != nil {
			return err
		}
		line = line[:0]
	}
}

func framed(ctx context.Context, m *emu.Machine, dev *usart.Device) error {
	mem := make([]byte, frame.MaxEncodedLen(128))
	m.Attach(mem)
	s := frame.NewSender(dev, dev.NewTxBuffer(mem))
	d := frame.NewDecoder(make([]byte, 128-len("ack ")))
	ack := make([]byte, 0, 128)

	for {
		p, err := d.Receive(dev)
		switch {
		case err == usart.ErrWouldBlock:
			if err := idle(ctx, m); err != nil {
				return err
			}
			continue
		case err != nil:
			log.Println(err)
			continue
		}

		ack = append(append(ack[:0], "ack "...), p...)
		for {
			err := s.Send(ack)
			if err == nil {
				break
			}
			if err != usart.ErrStreamInUse {
				log.Println(err)
			}
			if err := idle(ctx, m); err != nil {
				return err
			}
		}
	}
}
