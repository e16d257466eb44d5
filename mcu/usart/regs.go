package usart

import "github.com/clktmr/usart/mcu/mmio"

// Registers is the USART register block.
type Registers struct {
	SR   mmio.R32[Status]
	DR   mmio.U32 // 9 bits, only the low 8 are used
	BRR  mmio.U32
	CR1  mmio.R32[CR1]
	CR2  mmio.R32[CR2]
	CR3  mmio.R32[CR3]
	GTPR mmio.U32
}

type Status uint32

const (
	PE   Status = 1 << iota // parity error
	FE                      // framing error
	NF                      // noise detected
	ORE                     // overrun
	IDLE                    // idle line
	RXNE                    // receive data register not empty
	TC                      // transmission complete
	TXE                     // transmit data register empty
	LBD
	CTS

	lineErrors = ORE | NF | FE | PE
)

type CR1 uint32

const (
	SBK    CR1 = 1 << iota // send break
	RWU                    // receiver wakeup
	RE                     // receiver enable
	TE                     // transmitter enable
	IDLEIE                 // idle interrupt enable
	RXNEIE                 // receive data ready interrupt enable
	TCIE                   // transmission complete interrupt enable
	TXEIE                  // transmit data register empty interrupt enable
	PEIE                   // parity error interrupt enable
	PS                     // parity selection
	PCE                    // parity control enable
	WAKE
	M  // word length, 0: 8 data bits
	UE // USART enable
	_
	OVER8 // oversampling, 0: 16x
)

type CR2 uint32

const (
	STOP  CR2 = 3 << 12
	Stop1 CR2 = 0 << 12
	Stop2 CR2 = 2 << 12
)

type CR3 uint32

const (
	EIE    CR3 = 1 << iota // error interrupt enable
	IREN                   // IrDA
	IRLP                   // IrDA low power
	HDSEL                  // half duplex
	NACK                   // smartcard NACK
	SCEN                   // smartcard mode
	DMAR                   // DMA enable receiver
	DMAT                   // DMA enable transmitter
	RTSE                   // RTS enable
	CTSE                   // CTS enable
	CTSIE                  // CTS interrupt enable
	ONEBIT                 // one sample bit method
)
