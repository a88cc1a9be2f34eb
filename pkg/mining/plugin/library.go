//go:build cgo && !windows
// +build cgo,!windows

package plugin

/*
#cgo linux LDFLAGS: -ldl

#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

// One trampoline per ABI signature shape. The raw pointers come out of
// dlsym and are only ever invoked through these, with Go holding the
// owning slot's mutex.

typedef void     (*cm_init_fn)(void);
typedef uint32_t (*cm_call_fn)(const unsigned char*, uint32_t, uint32_t*);
typedef void     (*cm_desc_fn)(unsigned char*, uint32_t*, unsigned char*, uint32_t*);
typedef uint32_t (*cm_buf_fn)(unsigned char*, uint32_t*);
typedef uint32_t (*cm_getp_fn)(const unsigned char*, uint32_t, uint32_t*);
typedef uint32_t (*cm_setp_fn)(const unsigned char*, uint32_t, uint32_t);
typedef uint32_t (*cm_status_fn)(void);
typedef uint32_t (*cm_push_fn)(const unsigned char*, uint32_t, const unsigned char*);
typedef uint32_t (*cm_read_fn)(uint32_t*, unsigned char*);

static void cm_call_init(void *p) {
	((cm_init_fn)p)();
}
static uint32_t cm_call_solve(void *p, const unsigned char *h, uint32_t hlen, uint32_t *sol) {
	return ((cm_call_fn)p)(h, hlen, sol);
}
static void cm_call_describe(void *p, unsigned char *nb, uint32_t *nl, unsigned char *db, uint32_t *dl) {
	((cm_desc_fn)p)(nb, nl, db, dl);
}
static uint32_t cm_call_buf(void *p, unsigned char *b, uint32_t *l) {
	return ((cm_buf_fn)p)(b, l);
}
static uint32_t cm_call_get_param(void *p, const unsigned char *n, uint32_t nlen, uint32_t *v) {
	return ((cm_getp_fn)p)(n, nlen, v);
}
static uint32_t cm_call_set_param(void *p, const unsigned char *n, uint32_t nlen, uint32_t v) {
	return ((cm_setp_fn)p)(n, nlen, v);
}
static uint32_t cm_call_status(void *p) {
	return ((cm_status_fn)p)();
}
static uint32_t cm_call_push(void *p, const unsigned char *h, uint32_t hlen, const unsigned char *nonce) {
	return ((cm_push_fn)p)(h, hlen, nonce);
}
static uint32_t cm_call_read(void *p, uint32_t *sol, unsigned char *nonce) {
	return ((cm_read_fn)p)(sol, nonce);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"cyclemine/pkg/mining/core"
)

// slot pairs a resolved function pointer with its own mutex, so unrelated
// ABI operations are never serialized against each other. The pointer is
// only valid while the owning nativeLib's handle is open.
type slot struct {
	mu  sync.Mutex
	ptr unsafe.Pointer
}

// nativeLib is the dlopen-backed Solver. It owns the library handle and
// every resolved entry point; Close is the only way the pointers die.
type nativeLib struct {
	handle unsafe.Pointer
	slots  map[string]*slot
}

// OpenLibrary opens the plugin at path with dlopen and resolves all 12 entry
// points before returning. On any resolution failure the handle is closed and
// nothing is published, so a partially resolved library is never observable.
func OpenLibrary(path string) (Solver, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)
	if handle == nil {
		return nil, core.NewPluginNotFound(path, errors.New(dlerror()))
	}

	table, err := resolveAll(func(name string) (unsafe.Pointer, error) {
		cname := C.CString(name)
		defer C.free(unsafe.Pointer(cname))
		C.dlerror() // clear any stale error
		ptr := C.dlsym(handle, cname)
		if ptr == nil {
			return nil, errors.New(dlerror())
		}
		return ptr, nil
	})
	if err != nil {
		C.dlclose(handle)
		return nil, err
	}

	lib := &nativeLib{
		handle: handle,
		slots:  make(map[string]*slot, len(table)),
	}
	for name, ptr := range table {
		lib.slots[name] = &slot{ptr: ptr}
	}
	return lib, nil
}

func dlerror() string {
	msg := C.dlerror()
	if msg == nil {
		return "unknown dlopen error"
	}
	return C.GoString(msg)
}

// acquire locks the named slot for the duration of one call.
func (l *nativeLib) acquire(name string) (*slot, func()) {
	s := l.slots[name]
	s.mu.Lock()
	return s, s.mu.Unlock
}

func (l *nativeLib) Init() {
	s, release := l.acquire(SymInit)
	defer release()
	C.cm_call_init(s.ptr)
}

func (l *nativeLib) Solve(header []byte, sol *[core.CycleLength]uint32) uint32 {
	s, release := l.acquire(SymCall)
	defer release()
	var hp *C.uchar
	if len(header) > 0 {
		hp = (*C.uchar)(unsafe.Pointer(&header[0]))
	}
	return uint32(C.cm_call_solve(s.ptr, hp, C.uint32_t(len(header)),
		(*C.uint32_t)(unsafe.Pointer(&sol[0]))))
}

func (l *nativeLib) Describe(name []byte, nameLen *uint32, desc []byte, descLen *uint32) {
	s, release := l.acquire(SymDescription)
	defer release()
	C.cm_call_describe(s.ptr,
		(*C.uchar)(unsafe.Pointer(&name[0])), (*C.uint32_t)(unsafe.Pointer(nameLen)),
		(*C.uchar)(unsafe.Pointer(&desc[0])), (*C.uint32_t)(unsafe.Pointer(descLen)))
}

func (l *nativeLib) ParameterList(buf []byte, length *uint32) uint32 {
	s, release := l.acquire(SymParameterList)
	defer release()
	return uint32(C.cm_call_buf(s.ptr,
		(*C.uchar)(unsafe.Pointer(&buf[0])), (*C.uint32_t)(unsafe.Pointer(length))))
}

func (l *nativeLib) GetParameter(name []byte, value *uint32) uint32 {
	s, release := l.acquire(SymGetParameter)
	defer release()
	var np *C.uchar
	if len(name) > 0 {
		np = (*C.uchar)(unsafe.Pointer(&name[0]))
	}
	return uint32(C.cm_call_get_param(s.ptr, np, C.uint32_t(len(name)),
		(*C.uint32_t)(unsafe.Pointer(value))))
}

func (l *nativeLib) SetParameter(name []byte, value uint32) uint32 {
	s, release := l.acquire(SymSetParameter)
	defer release()
	var np *C.uchar
	if len(name) > 0 {
		np = (*C.uchar)(unsafe.Pointer(&name[0]))
	}
	return uint32(C.cm_call_set_param(s.ptr, np, C.uint32_t(len(name)), C.uint32_t(value)))
}

func (l *nativeLib) QueueUnderLimit() uint32 {
	s, release := l.acquire(SymIsQueueUnderLimit)
	defer release()
	return uint32(C.cm_call_status(s.ptr))
}

func (l *nativeLib) PushInput(hash []byte, nonce *[core.NonceSize]byte) uint32 {
	s, release := l.acquire(SymPushToInputQueue)
	defer release()
	var hp *C.uchar
	if len(hash) > 0 {
		hp = (*C.uchar)(unsafe.Pointer(&hash[0]))
	}
	return uint32(C.cm_call_push(s.ptr, hp, C.uint32_t(len(hash)),
		(*C.uchar)(unsafe.Pointer(&nonce[0]))))
}

func (l *nativeLib) ReadOutput(sol *[core.CycleLength]uint32, nonce *[core.NonceSize]byte) uint32 {
	s, release := l.acquire(SymReadFromOutputQueue)
	defer release()
	return uint32(C.cm_call_read(s.ptr,
		(*C.uint32_t)(unsafe.Pointer(&sol[0])),
		(*C.uchar)(unsafe.Pointer(&nonce[0]))))
}

func (l *nativeLib) StartProcessing() uint32 {
	s, release := l.acquire(SymStartProcessing)
	defer release()
	return uint32(C.cm_call_status(s.ptr))
}

func (l *nativeLib) StopProcessing() uint32 {
	s, release := l.acquire(SymStopProcessing)
	defer release()
	return uint32(C.cm_call_status(s.ptr))
}

func (l *nativeLib) HashesSinceLastCall() uint32 {
	s, release := l.acquire(SymHashesSinceLastCall)
	defer release()
	return uint32(C.cm_call_status(s.ptr))
}

// Close releases the library. Every slot mutex is taken first so no
// in-flight call can race the dlclose.
func (l *nativeLib) Close() error {
	for _, name := range Symbols {
		s := l.slots[name]
		s.mu.Lock()
		s.ptr = nil
		s.mu.Unlock()
	}
	if l.handle != nil {
		if rc := C.dlclose(l.handle); rc != 0 {
			return fmt.Errorf("dlclose: %s", dlerror())
		}
		l.handle = nil
	}
	return nil
}
