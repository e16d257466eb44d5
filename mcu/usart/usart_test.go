package usart_test

import (
	"errors"
	"io"
	"testing"

	"github.com/clktmr/usart/mcu/dma"
	"github.com/clktmr/usart/mcu/gpio"
	"github.com/clktmr/usart/mcu/rcc"
	"github.com/clktmr/usart/mcu/usart"
	"github.com/clktmr/usart/mcu/usart/emu"
)

var clocks = rcc.Clocks{SYSCLK: 168e6, HCLK: 168e6, PCLK1: 42e6, PCLK2: 84e6}

type board struct {
	*emu.Machine
	pa *gpio.PortA
	pd *gpio.PortD
	v  *usart.Variant[*gpio.PortA, *gpio.PortD, rcc.APB1Bus]
}

// newBoard returns an emulated USART2.
func newBoard(t *testing.T) *board {
	_, rx, tx := usart.USART2.DMA()
	m := emu.New(rx, tx)
	t.Cleanup(func() { m.Close() })
	return &board{
		Machine: m,
		pa:      new(gpio.PortA),
		pd:      new(gpio.PortD),
		v:       usart.USART2.Relocate(&m.USART, &m.DMA),
	}
}

func (b *board) init(t *testing.T, dmac *dma.Controller) *usart.Device {
	d, err := b.v.Init(clocks.Baud(115200), dmac, b.pa, b.pd, &b.RCC, clocks)
	if err != nil {
		t.Fatal("Init:", err)
	}
	return d
}

func TestInit(t *testing.T) {
	b := newBoard(t)
	b.USART.CR1.Store(usart.RXNEIE | usart.M | usart.PCE | usart.OVER8)
	b.USART.CR3.Store(usart.RTSE | usart.CTSE)
	b.init(t, &b.DMA)

	if got := b.RCC.AHB1ENR.Load(); got != 1<<0|1<<3|1<<21 {
		t.Errorf("AHB1ENR: got %#x", got)
	}
	if got := b.RCC.APB1ENR.Load(); got != 1<<17 {
		t.Errorf("APB1ENR: got %#x", got)
	}

	pins := map[string]struct {
		regs *gpio.Registers
		pin  gpio.Pin
	}{
		"PA2": {b.pa.Regs(), 2},
		"PD6": {b.pd.Regs(), 6},
	}
	for name, p := range pins {
		if m := p.regs.Mode(p.pin); m != gpio.AltFunc {
			t.Errorf("%s: mode %d", name, m)
		}
		if s := p.regs.Speed(p.pin); s != gpio.VeryHigh {
			t.Errorf("%s: speed %d", name, s)
		}
		if af := p.regs.AltFunc(p.pin); af != gpio.AF7 {
			t.Errorf("%s: alternate function %d", name, af)
		}
	}

	want := dma.StreamConfig{
		Channel:     4,
		Priority:    dma.PriorityMedium,
		MemSize:     dma.Byte,
		PeriphSize:  dma.Byte,
		MemInc:      true,
		CompleteIRQ: true,
	}
	want.Dir = dma.PeriphToMem
	if got := b.DMA.S[5].CR.Load().Config(); got != want {
		t.Errorf("rx stream: got %+v", got)
	}
	want.Dir = dma.MemToPeriph
	if got := b.DMA.S[6].CR.Load().Config(); got != want {
		t.Errorf("tx stream: got %+v", got)
	}

	if got := b.USART.BRR.Load(); got != 364 {
		t.Errorf("BRR: expected 364, got %d", got)
	}
	if got := b.USART.CR2.LoadBits(usart.STOP); got != usart.Stop1 {
		t.Errorf("CR2: got %#x", got)
	}
	if got := b.USART.CR3.Load(); got != usart.DMAR|usart.DMAT {
		t.Errorf("CR3: got %#x", got)
	}
	if got := b.USART.CR1.Load(); got != usart.UE|usart.RE|usart.TE {
		t.Errorf("CR1: got %#x", got)
	}
}

func TestInitWithoutDMA(t *testing.T) {
	b := newBoard(t)
	b.init(t, nil)

	if b.RCC.Enabled(rcc.DMA1) {
		t.Error("dma clock enabled")
	}
	if b.DMA.S[5].CR.Load() != 0 || b.DMA.S[6].CR.Load() != 0 {
		t.Error("dma streams configured")
	}
}

func TestDivisor(t *testing.T) {
	for _, bps := range []uint32{1200, 9600, 57600, 115200, 230400, 921600} {
		ticks := clocks.Baud(bps)
		div, err := usart.Divisor[rcc.APB1Bus](ticks, clocks)
		if err != nil {
			t.Fatalf("%d baud: %v", bps, err)
		}
		if want := ticks.Raw() / (clocks.HCLK / clocks.PCLK1); div != want {
			t.Errorf("%d baud: expected %d, got %d", bps, want, div)
		}
	}
	if div, _ := usart.Divisor[rcc.APB2Bus](clocks.Baud(115200), clocks); div != 729 {
		t.Errorf("APB2 115200 baud: got %d", div)
	}
}

func TestInitBaudRate(t *testing.T) {
	tests := map[string]struct {
		baud   rcc.Ticks
		clocks rcc.Clocks
		err    error
	}{
		"minimum":          {64, clocks, nil},
		"too fast":         {63, clocks, usart.ErrBaudRate},
		"zero":             {0, clocks, usart.ErrBaudRate},
		"maximum":          {0xffff * 4, clocks, nil},
		"too slow":         {0x10000 * 4, clocks, usart.ErrBaudRate},
		"no clocks":        {1458, rcc.Clocks{}, usart.ErrBaudRate},
		"bus unconfigured": {1458, rcc.Clocks{HCLK: 168e6}, usart.ErrBaudRate},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			b := newBoard(t)
			_, err := b.v.Init(tc.baud, &b.DMA, b.pa, b.pd, &b.RCC, tc.clocks)
			if err != tc.err {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if err == nil {
				return
			}
			if b.RCC.AHB1ENR.Load() != 0 || b.RCC.APB1ENR.Load() != 0 {
				t.Error("clocks enabled")
			}
			if b.pa.Regs().MODER.Load() != 0 || b.pd.Regs().AFR[0].Load() != 0 {
				t.Error("pins configured")
			}
			if b.DMA.S[5].CR.Load() != 0 {
				t.Error("dma configured")
			}
			if b.USART.BRR.Load() != 0 || b.USART.CR1.Load() != 0 {
				t.Error("usart configured")
			}
		})
	}
}

func TestInitWrongController(t *testing.T) {
	b := newBoard(t)
	_, err := b.v.Init(clocks.Baud(115200), new(dma.Controller), b.pa, b.pd, &b.RCC, clocks)
	if err != usart.ErrWrongController {
		t.Fatalf("expected ErrWrongController, got %v", err)
	}
	if b.RCC.AHB1ENR.Load() != 0 || b.USART.CR1.Load() != 0 {
		t.Fatal("registers written")
	}
}

func TestReadNotReady(t *testing.T) {
	b := newBoard(t)
	d := b.init(t, nil)

	if _, err := d.Read(); err != usart.ErrWouldBlock {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
	b.USART.SR.Store(0)
	if err := d.Write('x'); err != usart.ErrWouldBlock {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
	if err := d.Flush(); err != usart.ErrWouldBlock {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
}

func TestErrorPrecedence(t *testing.T) {
	tests := map[string]struct {
		flags usart.Status
		err   error
	}{
		"overrun and framing": {usart.ORE | usart.FE, usart.ErrOverrun},
		"noise and framing":   {usart.NF | usart.FE, usart.ErrNoise},
		"all":                 {usart.ORE | usart.NF | usart.FE, usart.ErrOverrun},
		"framing":             {usart.FE, usart.ErrFraming},
		"parity only":         {usart.PE, nil},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			b := newBoard(t)
			d := b.init(t, nil)
			b.Feed([]byte{0x7f})
			b.InjectError(tc.flags)

			c, err := d.Read()
			if err != tc.err {
				t.Fatalf("Read: expected %v, got %v", tc.err, err)
			}
			if err == nil {
				if c != 0x7f {
					t.Fatalf("Read: got %#x", c)
				}
				return
			}
			if !usart.IsLineError(err) {
				t.Errorf("%v is not a line error", err)
			}
			if err := d.Write(0); err != tc.err {
				t.Errorf("Write: expected %v, got %v", tc.err, err)
			}

			// Errors stay until discarded.
			if _, err := d.Read(); err != tc.err {
				t.Fatalf("second Read: expected %v, got %v", tc.err, err)
			}
			if sr := d.Discard(); sr&tc.flags != tc.flags {
				t.Errorf("Discard: status %#x", sr)
			}
			if _, err := d.Read(); err != usart.ErrWouldBlock {
				t.Fatalf("Read after Discard: got %v", err)
			}
		})
	}
}

func TestLoopback(t *testing.T) {
	b := newBoard(t)
	d := b.init(t, nil)

	for _, c := range []byte{0x48, 0x49} {
		if err := d.Write(c); err != nil {
			t.Fatal("Write:", err)
		}
	}
	if err := d.Flush(); err != nil {
		t.Fatal("Flush:", err)
	}
	for _, want := range []byte{0x48, 0x49} {
		got, err := d.Read()
		if err != nil {
			t.Fatal("Read:", err)
		}
		if got != want {
			t.Fatalf("expected %#x, got %#x", want, got)
		}
	}
	if _, err := d.Read(); err != usart.ErrWouldBlock {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
}

func TestListen(t *testing.T) {
	b := newBoard(t)
	d := b.init(t, nil)
	initial := b.USART.CR1.Load()

	d.Listen(usart.RxReady)
	d.Listen(usart.RxReady)
	if got := b.USART.CR1.Load(); got != initial|usart.RXNEIE {
		t.Fatalf("Listen: CR1 %#x", got)
	}
	if d.Listening(usart.RxReady|usart.TxReady) != usart.RxReady {
		t.Fatal("Listening reports wrong events")
	}

	d.Listen(usart.TransferComplete | usart.TxReady)
	d.Unlisten(usart.RxReady)
	if got := b.USART.CR1.Load(); got != initial|usart.TCIE|usart.TXEIE {
		t.Fatalf("Unlisten: CR1 %#x", got)
	}
	d.Unlisten(usart.RxReady)
	if got := b.USART.CR1.Load(); got != initial|usart.TCIE|usart.TXEIE {
		t.Fatalf("second Unlisten: CR1 %#x", got)
	}
}

func TestReadExact(t *testing.T) {
	b := newBoard(t)
	d := b.init(t, &b.DMA)
	mem := make([]byte, 16)
	buf := d.NewRxBuffer(mem)

	if err := d.ReadExact(&b.DMA, buf); err != nil {
		t.Fatal("ReadExact:", err)
	}
	s := &b.DMA.S[5]
	if got := s.NDTR.Load(); got != 16 {
		t.Errorf("NDTR: expected 16, got %d", got)
	}
	if got := s.M0AR.Load(); got != uint32(buf.Addr()) {
		t.Errorf("M0AR: expected %#x, got %#x", buf.Addr(), got)
	}
	if got := s.PAR.Load(); got != uint32(b.USART.DR.Addr()) {
		t.Errorf("PAR: expected data register, got %#x", got)
	}
	if !b.DMA.Enabled(5) {
		t.Error("stream not enabled")
	}

	other := d.NewRxBuffer(make([]byte, 4))
	if err := d.ReadExact(&b.DMA, other); err != usart.ErrStreamInUse {
		t.Fatalf("expected ErrStreamInUse, got %v", err)
	}
	if other.State() != dma.Idle {
		t.Fatal("rejected buffer was locked")
	}
}

func TestTransferSize(t *testing.T) {
	tests := map[string]struct {
		size int
		err  error
	}{
		"max":      {65535, nil},
		"oversize": {65536, usart.ErrOversized},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			b := newBoard(t)
			d := b.init(t, &b.DMA)

			rx := d.NewRxBuffer(make([]byte, tc.size))
			if err := d.ReadExact(&b.DMA, rx); err != tc.err {
				t.Fatalf("ReadExact: expected %v, got %v", tc.err, err)
			}
			tx := d.NewTxBuffer(make([]byte, tc.size))
			if err := d.WriteAll(&b.DMA, tx); err != tc.err {
				t.Fatalf("WriteAll: expected %v, got %v", tc.err, err)
			}
			if tc.err != nil {
				return
			}
			for _, n := range []int{5, 6} {
				if got := b.DMA.S[n].NDTR.Load(); got != uint32(tc.size) {
					t.Errorf("stream %d: NDTR %d", n, got)
				}
			}
		})
	}
}

func TestTransferMisuse(t *testing.T) {
	b := newBoard(t)
	d := b.init(t, &b.DMA)

	wrong := dma.NewBuffer[dma.Rx](&b.DMA, 6, make([]byte, 4))
	if err := d.ReadExact(&b.DMA, wrong); err != usart.ErrWrongStream {
		t.Errorf("wrong stream: got %v", err)
	}
	rx := d.NewRxBuffer(make([]byte, 4))
	if err := d.ReadExact(new(dma.Controller), rx); err != usart.ErrWrongStream {
		t.Errorf("wrong controller: got %v", err)
	}

	locked := d.NewTxBuffer(make([]byte, 4))
	locked.Fill(func([]byte) {
		if err := d.WriteAll(&b.DMA, locked); err != dma.ErrLocked {
			t.Errorf("filling buffer: got %v", err)
		}
	})

	b2 := newBoard(t)
	nodma := b2.init(t, nil)
	buf := dma.NewBuffer[dma.Tx](&b2.DMA, 6, make([]byte, 4))
	if err := nodma.WriteAll(&b2.DMA, buf); err != usart.ErrNoDMA {
		t.Errorf("without dma: got %v", err)
	}
}

func TestTransferLoopback(t *testing.T) {
	b := newBoard(t)
	d := b.init(t, &b.DMA)

	rxmem, txmem := make([]byte, 5), make([]byte, 5)
	b.Attach(rxmem)
	b.Attach(txmem)
	rx, tx := d.NewRxBuffer(rxmem), d.NewTxBuffer(txmem)

	tx.Fill(func(p []byte) { copy(p, "hello") })
	if err := d.ReadExact(&b.DMA, rx); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteAll(&b.DMA, tx); err != nil {
		t.Fatal(err)
	}
	for b.Step() {
	}
	for _, poll := range []func() (bool, error){
		func() (bool, error) { return dma.Poll(rx) },
		func() (bool, error) { return dma.Poll(tx) },
	} {
		if done, err := poll(); !done || err != nil {
			t.Fatalf("transfer not complete: %v", err)
		}
	}
	if err := rx.Release(); err != nil {
		t.Fatal(err)
	}
	rx.View(func(p []byte) {
		if string(p) != "hello" {
			t.Fatalf("received %q", p)
		}
	})
}

func TestPort(t *testing.T) {
	b := newBoard(t)
	p := usart.NewPort(b.init(t, nil))

	if _, err := io.WriteString(p, "hello"); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 8)
	n, err := p.Read(buf)
	if err != nil || string(buf[:n]) != "hello" {
		t.Fatalf("Read: %q %v", buf[:n], err)
	}

	b.Feed([]byte("ab"))
	b.InjectError(usart.NF)
	n, err = p.Read(buf)
	if n != 0 || !errors.Is(err, usart.ErrNoise) {
		t.Fatalf("expected noise error, got %d %v", n, err)
	}
	// The noisy byte was dropped.
	n, err = p.Read(buf)
	if err != nil || string(buf[:n]) != "b" {
		t.Fatalf("Read after error: %q %v", buf[:n], err)
	}
}

func TestCell(t *testing.T) {
	b := newBoard(t)
	c := usart.NewCell(b.init(t, nil))

	done := make(chan error)
	for k := 0; k < 2; k++ {
		go func() {
			done <- c.With(func(d *usart.Device) error {
				return d.Write('x')
			})
		}()
	}
	for k := 0; k < 2; k++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
	if b.Pending() != 2 {
		t.Fatalf("expected 2 bytes, got %d", b.Pending())
	}
}
