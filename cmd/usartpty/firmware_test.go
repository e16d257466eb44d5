package main

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clktmr/usart/drivers/frame"
	"github.com/clktmr/usart/mcu/gpio"
	"github.com/clktmr/usart/mcu/usart"
	"github.com/clktmr/usart/mcu/usart/emu"
)

type syncBuffer struct {
	mtx sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// runFirmware feeds in to the named firmware and returns the first want bytes
// it sends.
func runFirmware(t *testing.T, name string, in []byte, want int) []byte {
	_, rx, tx := usart.USART2.DMA()
	m := emu.New(rx, tx)
	defer m.Close()
	var out syncBuffer
	m.SetOutput(&out)

	v := usart.USART2.Relocate(&m.USART, &m.DMA)
	dev, err := v.Init(clocks.Baud(115200), &m.DMA, new(gpio.PortA), new(gpio.PortD), &m.RCC, clocks)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- firmwares[name](ctx, m, dev) }()

	m.Feed(in)
	require.Eventually(t, func() bool {
		return len(out.Bytes()) >= want
	}, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	return out.Bytes()
}

func TestEcho(t *testing.T) {
	require.Equal(t, []byte("hello"), runFirmware(t, "echo", []byte("hello"), 5))
}

func TestUpper(t *testing.T) {
	require.Equal(t, []byte("HELLO, 1\r"), runFirmware(t, "upper", []byte("hello, 1\r"), 9))
}

func TestFramed(t *testing.T) {
	in := make([]byte, 16)
	n, err := frame.Encode(in, []byte("hi"))
	require.NoError(t, err)

	want := make([]byte, 16)
	m, err := frame.Encode(want, []byte("ack hi"))
	require.NoError(t, err)

	require.Equal(t, want[:m], runFirmware(t, "frame", in[:n], m))
}
