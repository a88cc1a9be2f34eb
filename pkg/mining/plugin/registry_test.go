package plugin_test

import (
	"errors"
	"testing"

	"cyclemine/pkg/mining/core"
	"cyclemine/pkg/mining/plugin"
	"cyclemine/pkg/mining/plugin/plugintest"
)

func TestLoadInvokesInitOnce(t *testing.T) {
	stub := &plugintest.Solver{}
	reg := plugin.NewRegistry(plugintest.Open(stub), nil)

	if err := reg.Load("stub.so"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := stub.InitCalls.Load(); got != 1 {
		t.Errorf("Expected exactly one init call, got %d", got)
	}
	if !reg.Loaded() {
		t.Error("Loaded should report true after Load")
	}
}

func TestLoadFailureLeavesRegistryUnchanged(t *testing.T) {
	stub := &plugintest.Solver{Name: "keeper"}
	fail := false
	opener := func(path string) (plugin.Solver, error) {
		if fail {
			return nil, core.NewSymbolResolution("cuckoo_call", errors.New("undefined symbol"))
		}
		return stub, nil
	}

	reg := plugin.NewRegistry(opener, nil)

	// A failed load against an empty registry leaves it empty.
	fail = true
	if err := reg.Load("broken.so"); !errors.Is(err, core.ErrSymbolResolution) {
		t.Fatalf("Expected SymbolResolution, got %v", err)
	}
	if reg.Loaded() {
		t.Fatal("Failed load must not populate an empty registry")
	}

	// A failed load against a populated registry keeps the prior plugin.
	fail = false
	if err := reg.Load("keeper.so"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	fail = true
	if err := reg.Load("broken.so"); err == nil {
		t.Fatal("Expected load failure")
	}
	if stub.Closed.Load() {
		t.Error("Prior plugin must not be closed by a failed load")
	}
	name, _, err := reg.Describe()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if name != "keeper" {
		t.Errorf("Expected prior plugin to remain active, got %q", name)
	}
}

func TestLoadDisplacesPriorPlugin(t *testing.T) {
	first := &plugintest.Solver{Name: "first"}
	second := &plugintest.Solver{Name: "second"}

	solvers := []*plugintest.Solver{first, second}
	i := 0
	opener := func(string) (plugin.Solver, error) {
		s := solvers[i]
		i++
		return s, nil
	}

	reg := plugin.NewRegistry(opener, nil)
	if err := reg.Load("first.so"); err != nil {
		t.Fatalf("First load failed: %v", err)
	}
	if err := reg.Load("second.so"); err != nil {
		t.Fatalf("Second load failed: %v", err)
	}

	if !first.Closed.Load() {
		t.Error("Displaced plugin should have been closed")
	}
	if second.Closed.Load() {
		t.Error("Active plugin should not be closed")
	}
	name, _, err := reg.Describe()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if name != "second" {
		t.Errorf("Expected active plugin 'second', got %q", name)
	}
}

func TestUnloadIsIdempotent(t *testing.T) {
	stub := &plugintest.Solver{}
	reg := plugin.NewRegistry(plugintest.Open(stub), nil)

	reg.Unload() // nothing loaded: no-op

	if err := reg.Load("stub.so"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	reg.Unload()
	if !stub.Closed.Load() {
		t.Error("Unload should close the plugin")
	}
	if reg.Loaded() {
		t.Error("Registry should be empty after Unload")
	}
	reg.Unload() // second unload: no-op
}

func TestEveryCallFailsWhenNotLoaded(t *testing.T) {
	reg := plugin.NewRegistry(plugintest.Open(&plugintest.Solver{}), nil)

	var sol core.Solution
	checks := map[string]error{}
	_, err := reg.Solve(nil, &sol.Nonces)
	checks["solve"] = err
	_, _, err = reg.Describe()
	checks["describe"] = err
	_, err = reg.ParameterList(make([]byte, 16))
	checks["parameter_list"] = err
	_, err = reg.GetParameter("X")
	checks["get_parameter"] = err
	checks["set_parameter"] = reg.SetParameter("X", 1)
	_, err = reg.QueueUnderLimit()
	checks["is_queue_under_limit"] = err
	_, err = reg.PushInput(nil, [core.NonceSize]byte{})
	checks["push_to_input_queue"] = err
	_, err = reg.ReadOutput()
	checks["read_from_output_queue"] = err
	checks["start_processing"] = reg.StartProcessing()
	checks["stop_processing"] = reg.StopProcessing()
	_, err = reg.HashesSinceLastCall()
	checks["hashes_since_last_call"] = err

	for op, err := range checks {
		if !errors.Is(err, core.ErrPluginNotLoaded) {
			t.Errorf("%s: expected PluginNotLoaded, got %v", op, err)
		}
	}
}

func TestParameterListCodes(t *testing.T) {
	stub := &plugintest.Solver{}
	reg := loadStub(t, stub)

	stub.ParameterListFn = func(buf []byte, length *uint32) uint32 {
		*length = uint32(copy(buf, `[{"name":"NUM_THREADS"}]`))
		return 0
	}
	n, err := reg.ParameterList(make([]byte, 64))
	if err != nil {
		t.Fatalf("ParameterList failed: %v", err)
	}
	if n != len(`[{"name":"NUM_THREADS"}]`) {
		t.Errorf("Unexpected length %d", n)
	}

	stub.ParameterListFn = func(buf []byte, length *uint32) uint32 { return 3 }
	if _, err := reg.ParameterList(make([]byte, 4)); !errors.Is(err, core.ErrBufferTooSmall) {
		t.Errorf("rc 3 should map to ErrBufferTooSmall, got %v", err)
	}

	stub.ParameterListFn = func(buf []byte, length *uint32) uint32 { return 7 }
	if _, err := reg.ParameterList(make([]byte, 4)); !errors.Is(err, core.ErrUnexpectedResult) {
		t.Errorf("rc 7 should map to UnexpectedResult, got %v", err)
	}
}

func TestSetParameterCodes(t *testing.T) {
	stub := &plugintest.Solver{}
	reg := loadStub(t, stub)

	codes := map[uint32]error{
		0: nil,
		1: core.ErrParameter,
		2: core.ErrParameter,
		9: core.ErrUnexpectedResult,
	}
	for rc, expected := range codes {
		stub.SetParameterFn = func(string, uint32) uint32 { return rc }
		err := reg.SetParameter("NUM_THREADS", 4)
		if expected == nil {
			if err != nil {
				t.Errorf("rc %d: expected success, got %v", rc, err)
			}
			continue
		}
		if !errors.Is(err, expected) {
			t.Errorf("rc %d: expected %v, got %v", rc, expected, err)
		}
	}
}

func TestGetParameterCodes(t *testing.T) {
	stub := &plugintest.Solver{}
	reg := loadStub(t, stub)

	stub.GetParameterFn = func(name string, value *uint32) uint32 {
		*value = 8
		return 0
	}
	value, err := reg.GetParameter("NUM_THREADS")
	if err != nil {
		t.Fatalf("GetParameter failed: %v", err)
	}
	if value != 8 {
		t.Errorf("Expected value 8, got %d", value)
	}

	stub.GetParameterFn = func(name string, value *uint32) uint32 { return 1 }
	if _, err := reg.GetParameter("MISSING"); !errors.Is(err, core.ErrParameter) {
		t.Errorf("rc 1 should map to ParameterError, got %v", err)
	}
}

func TestQueueAndPushFlowControl(t *testing.T) {
	stub := &plugintest.Solver{}
	reg := loadStub(t, stub)

	stub.QueueUnderLimitFn = func() uint32 { return 1 }
	under, err := reg.QueueUnderLimit()
	if err != nil || !under {
		t.Errorf("Expected capacity, got %v/%v", under, err)
	}
	stub.QueueUnderLimitFn = func() uint32 { return 0 }
	under, err = reg.QueueUnderLimit()
	if err != nil || under {
		t.Errorf("Expected full queue, got %v/%v", under, err)
	}

	stub.PushInputFn = func([]byte, [core.NonceSize]byte) uint32 { return 0 }
	accepted, err := reg.PushInput([]byte{1}, core.EncodeNonce(1))
	if err != nil {
		t.Fatalf("Rejected push must not be an error: %v", err)
	}
	if accepted {
		t.Error("Expected push to be rejected")
	}
}

func TestReadOutputPopsSolution(t *testing.T) {
	stub := &plugintest.Solver{}
	reg := loadStub(t, stub)

	sol, err := reg.ReadOutput()
	if err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	if sol != nil {
		t.Error("Empty queue should return nil solution")
	}

	stub.ReadOutputFn = func(nonces *[core.CycleLength]uint32, nonce *[core.NonceSize]byte) uint32 {
		nonces[0] = 11
		*nonce = core.EncodeNonce(0x0102030405060708)
		return 1
	}
	sol, err = reg.ReadOutput()
	if err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	if sol == nil {
		t.Fatal("Expected popped solution")
	}
	if sol.Nonces[0] != 11 || sol.NonceUint64() != 0x0102030405060708 {
		t.Errorf("Solution fields not carried through: %+v", sol)
	}
}

func TestProcessingControl(t *testing.T) {
	stub := &plugintest.Solver{}
	reg := loadStub(t, stub)

	if err := reg.StartProcessing(); err != nil {
		t.Errorf("StartProcessing failed: %v", err)
	}
	if err := reg.StopProcessing(); err != nil {
		t.Errorf("StopProcessing failed: %v", err)
	}

	stub.StartFn = func() uint32 { return 0 }
	if err := reg.StartProcessing(); !errors.Is(err, core.ErrProcessing) {
		t.Errorf("Expected ProcessingError, got %v", err)
	}
}

func loadStub(t *testing.T, stub *plugintest.Solver) *plugin.Registry {
	t.Helper()
	reg := plugin.NewRegistry(plugintest.Open(stub), nil)
	if err := reg.Load("stub.so"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return reg
}
