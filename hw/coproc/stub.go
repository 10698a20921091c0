// Package coproc implements a minimal DSP coprocessor. It doesn't execute
// any microcode: it acknowledges every mail it receives from the CPU with a
// reply mail and a DSP interrupt.
package coproc

import (
	"context"
	"sync"

	"dspi/emu/log"
	"dspi/hw/hwdefs"
)

// InterruptRequester is where the coprocessor raises DSP interrupts. It must
// be safe for concurrent use.
type InterruptRequester interface {
	GenerateInterruptFromPlugin(src hwdefs.IntSource, set bool)
}

// Control register bits owned by the coprocessor.
const (
	CtrlReset     uint16 = 1 << 0
	CtrlAssertInt uint16 = 1 << 1
	CtrlHalt      uint16 = 1 << 2
	CtrlUnk3      uint16 = 1 << 10
	CtrlInit      uint16 = 1 << 11

	ctrlMask = CtrlReset | CtrlAssertInt | CtrlHalt | CtrlUnk3 | CtrlInit
)

// ReplyBase is ORed with the low half of each received mail to build the
// reply.
const ReplyBase uint32 = 0xDCD10000

const mailQueueLen = 64

// mailbox is a 31-bit mail plus the valid bit, which reads as bit 15 of the
// high half.
type mailbox struct {
	val   uint32
	valid bool
}

func (m mailbox) hi() uint16 {
	hi := uint16(m.val>>16) & 0x7FFF
	if m.valid {
		hi |= 0x8000
	}
	return hi
}

func (m mailbox) lo() uint16 { return uint16(m.val) }

// Stub is the coprocessor. The mailbox and control methods are called by the
// DSP interface, Run (or Process) plays the role of the DSP thread.
type Stub struct {
	mu      sync.Mutex
	toDSP   mailbox
	fromDSP mailbox
	control uint16
	recv    []uint32

	irq   InterruptRequester
	mails chan uint32
}

// NewStub returns a halted coprocessor.
func NewStub() *Stub {
	return &Stub{
		control: CtrlHalt,
		mails:   make(chan uint32, mailQueueLen),
	}
}

// Attach sets the interrupt requester. Must be called before any mail is
// processed.
func (s *Stub) Attach(irq InterruptRequester) {
	s.irq = irq
}

func (s *Stub) mailbox(cpuMailbox bool) *mailbox {
	if cpuMailbox {
		return &s.toDSP
	}
	return &s.fromDSP
}

func (s *Stub) ReadMailboxHigh(cpuMailbox bool) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mailbox(cpuMailbox).hi()
}

// ReadMailboxLow reads the low half. Reading the low half of the DSP mailbox
// acknowledges the mail.
func (s *Stub) ReadMailboxLow(cpuMailbox bool) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	mb := s.mailbox(cpuMailbox)
	lo := mb.lo()
	if !cpuMailbox {
		mb.valid = false
	}
	return lo
}

func (s *Stub) WriteMailboxHigh(cpuMailbox bool, val uint16) {
	if !cpuMailbox {
		log.ModCoproc.ErrorZ("CPU writes DSP mailbox").Hex16("val", val).End()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toDSP.val = uint32(val&0x7FFF)<<16 | s.toDSP.val&0xFFFF
}

// WriteMailboxLow completes a mail and sends it to the DSP.
func (s *Stub) WriteMailboxLow(cpuMailbox bool, val uint16) {
	if !cpuMailbox {
		log.ModCoproc.ErrorZ("CPU writes DSP mailbox").Hex16("val", val).End()
		return
	}
	s.mu.Lock()
	s.toDSP.val = s.toDSP.val&0xFFFF0000 | uint32(val)
	s.toDSP.valid = true
	mail := s.toDSP.val
	s.mu.Unlock()

	select {
	case s.mails <- mail:
		log.ModCoproc.DebugZ("mail to DSP").Hex32("mail", mail).End()
	default:
		log.ModCoproc.WarnZ("DSP mail queue full, mail dropped").Hex32("mail", mail).End()
	}
}

func (s *Stub) ReadControlRegister() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control
}

// WriteControlRegister handles the bits owned by the coprocessor. A reset
// completes immediately: mailboxes are emptied and the init bit is set. The
// assert bit requests a DSP interrupt and doesn't stick.
func (s *Stub) WriteControlRegister(val uint16) uint16 {
	s.mu.Lock()
	ctrl := val & ctrlMask
	if ctrl&CtrlReset != 0 {
		s.toDSP = mailbox{}
		s.fromDSP = mailbox{}
		ctrl &^= CtrlReset
		ctrl |= CtrlInit
		log.ModCoproc.InfoZ("DSP reset").End()
	}
	assert := ctrl&CtrlAssertInt != 0
	ctrl &^= CtrlAssertInt
	s.control = ctrl
	s.mu.Unlock()

	if assert && s.irq != nil {
		s.irq.GenerateInterruptFromPlugin(hwdefs.IntDSP, true)
	}
	return ctrl
}

// Received returns the mails processed so far.
func (s *Stub) Received() []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint32(nil), s.recv...)
}

// handle replies to a mail. The interrupt is requested before the reply is
// visible, so that whoever sees the reply can rely on the request being
// queued.
func (s *Stub) handle(mail uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.irq != nil {
		s.irq.GenerateInterruptFromPlugin(hwdefs.IntDSP, true)
	}
	s.toDSP.valid = false
	s.recv = append(s.recv, mail)
	s.fromDSP = mailbox{val: ReplyBase | mail&0xFFFF, valid: true}
	log.ModCoproc.DebugZ("mail from DSP").Hex32("mail", s.fromDSP.val).End()
}

// Process handles the pending mails, without blocking. It returns the
// number of mails handled.
func (s *Stub) Process() int {
	n := 0
	for {
		select {
		case mail := <-s.mails:
			s.handle(mail)
			n++
		default:
			return n
		}
	}
}

// Run handles mails as they arrive, until ctx is canceled.
func (s *Stub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case mail := <-s.mails:
			s.handle(mail)
		}
	}
}
