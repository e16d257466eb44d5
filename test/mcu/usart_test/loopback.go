//go:build noos

package usart_test

import (
	"bytes"
	"runtime"
	"testing"
	"time"

	"github.com/clktmr/usart/machine"
	"github.com/clktmr/usart/mcu/dma"
	"github.com/clktmr/usart/mcu/gpio"
	"github.com/clktmr/usart/mcu/rcc"
	"github.com/clktmr/usart/mcu/usart"
)

var (
	dev   *usart.Device
	rxmem [64]byte
	txmem [64]byte
)

func setup(t testing.TB) *usart.Device {
	if dev != nil {
		return dev
	}
	var err error
	dev, err = usart.USART6.Init(machine.Clocks.Baud(921600), dma.DMA2(), gpio.C(), gpio.G(), rcc.RCC(), machine.Clocks)
	if err != nil {
		t.Fatal(err)
	}
	// Drop whatever was received while the pins were floating.
	for dev.Discard()&usart.RXNE != 0 {
	}
	return dev
}

// poll waits for the transfer on buf to end.
func poll[R dma.Role](t testing.TB, buf *dma.Buffer[R]) {
	deadline := time.Now().Add(100 * time.Millisecond)
	for {
		done, err := dma.Poll(buf)
		if err != nil {
			t.Fatal(err)
		}
		if done {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout, is PC6 wired to PG9?")
		}
		runtime.Gosched()
	}
}

func TestPolledLoopback(t *testing.T) {
	d := setup(t)
	for _, c := range []byte{0x48, 0x49} {
		for {
			err := d.Write(c)
			if err == nil {
				break
			}
			if err != usart.ErrWouldBlock {
				t.Fatal("Write:", err)
			}
		}
		deadline := time.Now().Add(10 * time.Millisecond)
		for {
			got, err := d.Read()
			if err == nil {
				if got != c {
					t.Fatalf("expected %#x, got %#x", c, got)
				}
				break
			}
			if err != usart.ErrWouldBlock {
				t.Fatal("Read:", err)
			}
			if time.Now().After(deadline) {
				t.Fatal("timeout, is PC6 wired to PG9?")
			}
		}
	}
}

func TestDMALoopback(t *testing.T) {
	d := setup(t)
	rx, tx := d.NewRxBuffer(rxmem[:]), d.NewTxBuffer(txmem[:])
	want := []byte("The quick brown fox jumps over the lazy dog, 0123456789 times!!!")

	tx.Fill(func(p []byte) { copy(p, want) })
	if err := d.ReadExact(d.DMA(), rx); err != nil {
		t.Fatal("ReadExact:", err)
	}
	if err := d.WriteAll(d.DMA(), tx); err != nil {
		t.Fatal("WriteAll:", err)
	}
	poll(t, tx)
	poll(t, rx)
	tx.Release()
	rx.Release()

	rx.View(func(p []byte) {
		if !bytes.Equal(p, want) {
			t.Fatalf("received %q", p)
		}
	})
}

func TestStreamInUse(t *testing.T) {
	d := setup(t)
	rx := d.NewRxBuffer(rxmem[:1])
	other := d.NewRxBuffer(rxmem[1:2])

	if err := d.ReadExact(d.DMA(), rx); err != nil {
		t.Fatal(err)
	}
	if err := d.ReadExact(d.DMA(), other); err != usart.ErrStreamInUse {
		t.Fatalf("expected ErrStreamInUse, got %v", err)
	}

	for d.Write('x') != nil {
	}
	poll(t, rx)
	rx.Release()
}

func BenchmarkWriteAll(b *testing.B) {
	d := setup(b)
	tx := d.NewTxBuffer(txmem[:])
	b.SetBytes(int64(len(txmem)))
	b.ResetTimer()
	for range b.N {
		if err := d.WriteAll(d.DMA(), tx); err != nil {
			b.Fatal(err)
		}
		poll(b, tx)
		tx.Release()
	}
	for d.Discard()&usart.RXNE != 0 {
	}
}
