//go:build linux

package eventheader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// TracingDir is the tracefs mount used to reach the user_events interface.
const TracingDir = "/sys/kernel/tracing"

const dataFile = TracingDir + "/user_events_data"

// ioctl requests from linux/user_events.h. Both take a pointer argument, so
// the encoded size is that of a pointer.
const (
	diagIOCSReg   = 0xc0082a00 // _IOWR('*', 0, struct user_reg *)
	diagIOCSUnreg = 0x40082a02 // _IOW('*', 2, struct user_unreg *)
)

// struct user_reg, packed.
type userReg struct {
	size       uint32
	enableBit  uint8
	enableSize uint8
	flags      uint16
	enableAddr uint64
	nameArgs   uint64
	writeIndex uint32
}

// struct user_unreg, packed.
type userUnreg struct {
	size        uint32
	disableBit  uint8
	reserved    uint8
	reserved2   uint16
	disableAddr uint64
}

// eventheader events always register with this tracepoint argument list; the
// self-describing payload follows the declared fields as trailing data.
const commandTypes = "u8 eventheader_flags;u8 version;u16 id;u16 tag;u8 opcode;u8 level"

var errClosed = errors.New("eventheader provider is closed")

type setKey struct {
	level   Level
	keyword uint64
}

// Provider is a named registration with the user_events subsystem. It owns one
// tracepoint per (level, keyword) pair its events are written under.
//
// Safe for concurrent use. Event writes do not take the provider lock.
type Provider struct {
	name  string
	group string

	mu     sync.Mutex
	file   *os.File
	sets   map[setKey]*EventSet
	closed bool

	// test seam: when set, event sets are never registered with the kernel and
	// writes are handed to sink instead.
	sink        func(record []byte) error
	sinkEnabled uint32
}

// EventSet is a registered (level, keyword) tracepoint of a [Provider]. The
// kernel updates the enable word whenever a session's interest in the set
// changes, so Enabled is current on every call without a syscall.
type EventSet struct {
	prov    *Provider
	level   Level
	keyword uint64

	writeIndex uint32
	// enable is updated asynchronously by the kernel; its address was passed
	// in the registration and must stay valid until unregistration.
	enable *uint32
}

type ProviderOpt func(*Provider)

// WithGroup adds a provider group suffix to every tracepoint name.
func WithGroup(group string) ProviderOpt {
	return func(p *Provider) {
		p.group = group
	}
}

// NewProvider opens the user_events interface for the named provider. The
// name becomes part of each tracepoint name, so it is restricted to ASCII
// letters, digits and underscore.
//
// Registration of the actual tracepoints happens per event set via
// [Provider.RegisterSet].
func NewProvider(name string, opts ...ProviderOpt) (*Provider, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	p := &Provider{
		name: name,
		sets: make(map[setKey]*EventSet),
	}
	for _, o := range opts {
		o(p)
	}
	if p.group != "" {
		if err := validateName(p.group); err != nil {
			return nil, fmt.Errorf("provider group: %w", err)
		}
	}

	f, err := os.OpenFile(dataFile, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open user_events data: %w", err)
	}
	p.file = f
	return p, nil
}

// NewUnregisteredProvider returns a provider whose event sets are not
// registered with the kernel: every set reports enabled (or disabled), and
// written records are passed to sink instead of the tracepoint write path.
// sink may be nil. For testing.
func NewUnregisteredProvider(name string, enabled bool, sink func(record []byte) error) *Provider {
	p := &Provider{
		name: name,
		sets: make(map[setKey]*EventSet),
		sink: sink,
	}
	if p.sink == nil {
		p.sink = func([]byte) error { return nil }
	}
	if enabled {
		p.sinkEnabled = 1
	}
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// RegisterSet registers the tracepoint for (level, keyword) and returns its
// event set. Registering the same pair again returns the existing set.
func (p *Provider) RegisterSet(level Level, keyword uint64) (*EventSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errClosed
	}

	k := setKey{level: level, keyword: keyword}
	if es, ok := p.sets[k]; ok {
		return es, nil
	}

	es := &EventSet{
		prov:    p,
		level:   level,
		keyword: keyword,
	}

	if p.sink != nil {
		es.enable = &p.sinkEnabled
		p.sets[k] = es
		return es, nil
	}

	es.enable = new(uint32)
	cmd := fmt.Sprintf("%s %s", p.eventName(level, keyword), commandTypes)
	cmdBytes, err := unix.BytePtrFromString(cmd)
	if err != nil {
		return nil, err
	}

	reg := userReg{
		size:       uint32(unsafe.Sizeof(userReg{})),
		enableBit:  0,
		enableSize: uint8(unsafe.Sizeof(*es.enable)),
		enableAddr: uint64(uintptr(unsafe.Pointer(es.enable))),
		nameArgs:   uint64(uintptr(unsafe.Pointer(cmdBytes))),
	}
	if err := p.ioctl(diagIOCSReg, unsafe.Pointer(&reg)); err != nil {
		return nil, fmt.Errorf("register %s: %w", cmd, err)
	}
	es.writeIndex = reg.writeIndex

	p.sets[k] = es
	return es, nil
}

// FindSet returns the registered event set for (level, keyword), or nil.
func (p *Provider) FindSet(level Level, keyword uint64) *EventSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sets[setKey{level: level, keyword: keyword}]
}

// Close unregisters every event set and releases the user_events handle.
// Writes issued concurrently with Close may fail; they will not misbehave.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.sink == nil {
		for _, es := range p.sets {
			unreg := userUnreg{
				size:        uint32(unsafe.Sizeof(userUnreg{})),
				disableBit:  0,
				disableAddr: uint64(uintptr(unsafe.Pointer(es.enable))),
			}
			if err := p.ioctl(diagIOCSUnreg, unsafe.Pointer(&unreg)); err != nil {
				errs = append(errs, fmt.Errorf("unregister L%xK%x: %w", es.level, es.keyword, err))
			}
		}
		if err := p.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// eventName formats the tracepoint name for a (level, keyword) pair, eg
// "MyProvider_L4K1" or "MyProvider_L4K1Gmygroup".
func (p *Provider) eventName(level Level, keyword uint64) string {
	if p.group != "" {
		return fmt.Sprintf("%s_L%xK%xG%s", p.name, uint8(level), keyword, p.group)
	}
	return fmt.Sprintf("%s_L%xK%x", p.name, uint8(level), keyword)
}

func (p *Provider) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, p.file.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// write issues the record for an event set through the tracepoint write path.
// The first iovec must be the set's write index.
func (p *Provider) write(es *EventSet, record []byte) error {
	if p.sink != nil {
		return p.sink(record)
	}

	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], es.writeIndex)
	_, err := unix.Writev(int(p.file.Fd()), [][]byte{idx[:], record})
	return err
}

// Level returns the event set's level.
func (es *EventSet) Level() Level { return es.level }

// Keyword returns the event set's keyword mask.
func (es *EventSet) Keyword() uint64 { return es.keyword }

// Enabled reports whether any tracing session is currently attached to this
// event set. It is a single atomic load of the kernel-maintained enable word,
// re-read on every call since sessions attach and detach at any time.
func (es *EventSet) Enabled() bool {
	return atomic.LoadUint32(es.enable) != 0
}

func validateName(name string) error {
	if name == "" {
		return errors.New("provider name is empty")
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return fmt.Errorf("provider name %q: only ASCII letters, digits and '_' are allowed", name)
		}
	}
	return nil
}
