package env

import (
	"go.uber.org/zap"

	vmbridge "github.com/wippyai/vmbridge"
	"github.com/wippyai/vmbridge/errors"
	"github.com/wippyai/vmbridge/internal/osthread"
	"github.com/wippyai/vmbridge/value"
)

// Option configures an Env.
type Option func(*Env)

// WithLogger sets the logger for contract warnings. Defaults to Logger().
func WithLogger(l *zap.Logger) Option {
	return func(e *Env) { e.log = l }
}

// WithChecks turns contract violations into panics carrying *errors.Error.
// Without it they are logged at warn level and the call proceeds.
func WithChecks(on bool) Option {
	return func(e *Env) { e.checks = on }
}

// WithMuteExceptions stops TakeException from describing exceptions to the
// runtime's diagnostics stream.
func WithMuteExceptions(on bool) Option {
	return func(e *Env) { e.mute = on }
}

type memberKey struct {
	cls  value.Ref
	name string
	sig  string
}

type methodInfo struct {
	name   string
	sig    value.MethodSignature
	static bool
}

type fieldInfo struct {
	name   string
	typ    value.Type
	static bool
}

// Env is the per-thread context over a NativeEnv. It owns the pending
// exception protocol, the class and member caches, and contract checking.
// An Env must only be used on the OS thread it was created on.
type Env struct {
	native      vmbridge.NativeEnv
	log         *zap.Logger
	classes     map[string]value.Ref
	methodCache map[memberKey]vmbridge.MethodID
	fieldCache  map[memberKey]vmbridge.FieldID
	methods     map[vmbridge.MethodID]methodInfo
	fields      map[vmbridge.FieldID]fieldInfo
	owner       int
	checks      bool
	mute        bool
}

// New wraps the NativeEnv of the calling thread. Checks default to on when
// the runtime reports -Xcheck:jni.
func New(native vmbridge.NativeEnv, opts ...Option) *Env {
	e := &Env{
		native:      native,
		log:         Logger(),
		classes:     make(map[string]value.Ref),
		methodCache: make(map[memberKey]vmbridge.MethodID),
		fieldCache:  make(map[memberKey]vmbridge.FieldID),
		methods:     make(map[vmbridge.MethodID]methodInfo),
		fields:      make(map[vmbridge.FieldID]fieldInfo),
		owner:       osthread.ID(),
	}
	if c, ok := native.(interface{ CheckJNI() bool }); ok {
		e.checks = c.CheckJNI()
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Attach attaches the calling thread to m and wraps its env.
func Attach(m vmbridge.Machine, opts ...Option) (*Env, error) {
	native, st := m.AttachCurrentThread()
	if err := st.Err(errors.PhaseLifecycle, "AttachCurrentThread"); err != nil {
		return nil, err
	}
	return New(native, opts...), nil
}

// Detach releases the Env's caches and detaches the calling thread from
// its runtime. The Env is unusable afterwards.
func (e *Env) Detach() error {
	m, err := e.Machine()
	if err != nil {
		return err
	}
	e.Close()
	return m.DetachCurrentThread().Err(errors.PhaseLifecycle, "DetachCurrentThread")
}

// Close releases the global refs held by the class cache.
func (e *Env) Close() {
	for name, ref := range e.classes {
		e.native.DeleteGlobalRef(ref)
		delete(e.classes, name)
	}
	clear(e.methodCache)
	clear(e.fieldCache)
}

// Native returns the wrapped function table.
func (e *Env) Native() vmbridge.NativeEnv { return e.native }

// Checked reports whether contract violations panic.
func (e *Env) Checked() bool { return e.checks }

// Version returns the runtime's interface version.
func (e *Env) Version() int32 { return e.native.GetVersion() }

// Machine returns the runtime lifecycle collaborator.
func (e *Env) Machine() (vmbridge.Machine, error) {
	m, st := e.native.GetMachine()
	if err := st.Err(errors.PhaseLifecycle, "GetMachine"); err != nil {
		return nil, err
	}
	return m, nil
}

// guard enforces thread affinity and, unless allowPending, the rule that no
// call is issued while an exception is pending.
func (e *Env) guard(op string, allowPending bool) {
	if e.owner != osthread.Unknown {
		if cur := osthread.ID(); cur != e.owner {
			e.violation(op, errors.WrongThread(e.owner, cur))
		}
	}
	if !allowPending && e.native.ExceptionCheck() {
		e.violation(op, errors.PendingException(op))
	}
}

// checkRef reports non-null refs the runtime no longer recognizes.
func (e *Env) checkRef(op string, r value.Ref) {
	if r.IsNull() {
		return
	}
	if e.native.GetObjectRefType(r) == vmbridge.InvalidRefType {
		e.violation(op, errors.InvalidHandle(errors.PhaseHandle, uint64(r)))
	}
}

func (e *Env) violation(op string, err *errors.Error) {
	if err.Member == "" {
		err.Member = op
	}
	if e.checks {
		panic(err)
	}
	e.log.Warn("bridge contract violation",
		zap.String("op", op),
		zap.String("kind", string(err.Kind)),
		zap.Error(err))
}
