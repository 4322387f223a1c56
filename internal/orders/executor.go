package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/buildtall-systems/orderlife/internal/db"
	"github.com/buildtall-systems/orderlife/internal/fsm"
	"github.com/buildtall-systems/orderlife/internal/metrics"
	"github.com/buildtall-systems/orderlife/internal/payment"
	"github.com/buildtall-systems/orderlife/internal/status"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fields the executor owns. Callers cannot set them through Extra.
var reserved = map[string]bool{
	"statusCode":       true,
	"status":           true,
	"statusTimestamps": true,
	"auditTrail":       true,
	"updatedAt":        true,
	"createdAt":        true,
}

// Metric label for rejected targets that name no status.
const invalidTarget = "invalid"

// Fields carried forward from the stored order when it is accepted.
var snapshotFields = []string{"proforma", "chargesSnapshot", "items", "proformaLocked", "directFlow"}

// Executor applies validated changes to order documents.
type Executor struct {
	store   Store
	layout  Layout
	graph   *fsm.OrderStateMachine
	mirror  *Mirrorer
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

type Option func(*Executor)

func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithClock sets the clock used for audit entries. Document timestamps come
// from the store.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(store Store, layout Layout, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		layout: layout,
		graph:  fsm.NewOrderStateMachine(),
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.mirror = NewMirrorer(store, layout, e.logger.Named("mirror"), e.metrics)
	return e
}

// Wait blocks until background mirror writes have settled.
func (e *Executor) Wait() {
	e.mirror.Wait()
}

// NextStatuses lists the statuses reachable from code.
func (e *Executor) NextStatuses(code string) []status.Code {
	return e.graph.NextStatuses(code)
}

// change is a validated transition ready to persist.
type change struct {
	ref     OrderRef
	from    status.Code
	to      status.Code
	forced  bool
	action  string
	extra   map[string]any
	mirror  map[string]any
	actor   Actor
	current db.Document
}

// SetOrderStatus moves an order to req.To. The edge is checked against the
// graph before anything is read or written; a target equal to the current
// status is a no-op.
func (e *Executor) SetOrderStatus(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	run := e.track(req.Ref)
	e.step(ctx, run, fsm.StepBegin)

	if missing := req.Ref.missing(); len(missing) > 0 {
		return nil, e.reject(ctx, run, req.To, &MissingFieldError{Fields: missing})
	}
	to, ok := status.CodeOf(req.To)
	if !ok {
		return nil, e.reject(ctx, run, req.To, &InvalidStatusError{Input: req.To})
	}

	c := &change{
		ref:    req.Ref,
		to:     to,
		action: "setStatus",
		extra:  req.Extra,
		actor:  req.Actor,
	}

	if strings.TrimSpace(req.From) == "" {
		doc, err := e.read(ctx, req.Ref)
		if err != nil {
			return nil, e.reject(ctx, run, string(to), &PersistenceError{Op: "read", Err: err})
		}
		c.current = doc
		rec := recordOf(doc)
		from, ok := rec.Code()
		if !ok {
			return nil, e.reject(ctx, run, string(to), &InvalidStatusError{Input: firstNonEmpty(rec.StatusCode, rec.Status)})
		}
		c.from = from
	} else {
		from, ok := status.CodeOf(req.From)
		if !ok {
			return nil, e.reject(ctx, run, string(to), &IllegalTransitionError{From: status.Code(req.From), To: to})
		}
		c.from = from
	}

	if c.from == c.to {
		e.step(ctx, run, fsm.StepFinish)
		e.metrics.Transition(string(to), metrics.OutcomeNoop)
		e.logger.Debug("transition is a no-op",
			zap.String("order_id", req.Ref.OrderID),
			zap.String("status", string(to)))
		return &TransitionResult{
			OrderID: req.Ref.OrderID,
			From:    c.from,
			To:      c.to,
			Label:   status.Label(c.to),
			NoOp:    true,
			Next:    e.graph.NextStatuses(string(c.to)),
			Mirror:  settled(MirrorResult{Skipped: true, Reason: "no-op"}),
		}, nil
	}

	if err := e.checkEdge(ctx, c, req.Force); err != nil {
		return nil, e.reject(ctx, run, string(to), err)
	}
	return e.commit(ctx, run, c)
}

// checkEdge validates from -> to. A forced request may take an override
// edge, and only for a passive order; on a regular edge the force flag
// changes nothing.
func (e *Executor) checkEdge(ctx context.Context, c *change, force bool) error {
	if _, err := e.graph.Transition(c.from, c.to); err == nil {
		return nil
	}
	if force && fsm.Forced(c.from, c.to) {
		if c.current == nil {
			doc, err := e.read(ctx, c.ref)
			if err != nil {
				return &PersistenceError{Op: "read", Err: err}
			}
			c.current = doc
		}
		if status.IsPassive(recordOf(c.current)) {
			c.forced = true
			return nil
		}
	}
	return &IllegalTransitionError{
		From:    c.from,
		To:      c.to,
		Forced:  force,
		Allowed: e.graph.NextStatuses(string(c.from)),
	}
}

// commit builds the patch for a validated change, writes it in one update
// and dispatches the mirror write.
func (e *Executor) commit(ctx context.Context, run *fsm.ExecutionFSM, c *change) (*TransitionResult, error) {
	log := e.logger.With(
		zap.String("order_id", c.ref.OrderID),
		zap.String("owner", c.ref.OwnerID),
		zap.String("from", string(c.from)),
		zap.String("to", string(c.to)))

	patch := e.basePatch(c.extra, log)
	tsField := status.TimestampField(c.to)
	patch["statusCode"] = string(c.to)
	patch["status"] = status.Label(c.to)
	patch["statusTimestamps."+tsField] = db.ServerTimestamp()
	patch["updatedAt"] = db.ServerTimestamp()
	patch["auditTrail"] = db.ArrayUnion(AuditEntry{
		ID:     e.newID(),
		Action: c.action,
		Status: string(c.to),
		From:   string(c.from),
		By:     c.actor,
		At:     e.now().UTC(),
		Forced: c.forced,
	})

	var preserved []string
	if c.to == status.Accepted {
		e.step(ctx, run, fsm.StepPreserve)
		preserved = e.preserve(ctx, c, patch, log)
	}

	e.step(ctx, run, fsm.StepPersist)
	if err := e.store.Update(ctx, e.layout.OrderDoc(c.ref), patch); err != nil {
		e.step(ctx, run, fsm.StepFail)
		if errors.Is(err, db.ErrDocumentNotFound) {
			err = ErrOrderNotFound
		}
		e.metrics.Transition(string(c.to), metrics.OutcomeFailed)
		log.Error("persisting transition failed", zap.Error(err))
		return nil, &PersistenceError{Op: "update", Err: err}
	}

	e.step(ctx, run, fsm.StepMirror)
	mirrorDoc := db.Document{
		"orderId":          c.ref.OrderID,
		"ownerId":          c.ref.OwnerID,
		"statusCode":       string(c.to),
		"status":           status.Label(c.to),
		"statusTimestamps": map[string]any{tsField: db.ServerTimestamp()},
		"updatedAt":        db.ServerTimestamp(),
	}
	for k, v := range c.mirror {
		mirrorDoc[k] = v
	}
	mirrored := e.mirror.Dispatch(ctx, c.ref, mirrorDoc, c.current)
	e.step(ctx, run, fsm.StepFinish)

	e.metrics.Transition(string(c.to), metrics.OutcomeOK)
	log.Info("order transitioned",
		zap.Bool("forced", c.forced),
		zap.String("actor", c.actor.ID))

	return &TransitionResult{
		OrderID:   c.ref.OrderID,
		From:      c.from,
		To:        c.to,
		Label:     status.Label(c.to),
		Forced:    c.forced,
		Preserved: preserved,
		Next:      e.graph.NextStatuses(string(c.to)),
		Mirror:    mirrored,
	}, nil
}

// basePatch copies caller fields into a new patch, dropping executor-owned
// keys and normalizing any payment mode.
func (e *Executor) basePatch(extra map[string]any, log *zap.Logger) db.Patch {
	patch := make(db.Patch, len(extra)+5)
	for k, v := range extra {
		root, _, _ := strings.Cut(k, ".")
		if reserved[root] {
			log.Warn("dropping executor-owned field", zap.String("field", k))
			continue
		}
		patch[k] = v
	}
	if raw, ok := patch["paymentMode"]; ok {
		e.setPayment(patch, raw)
	} else if raw, ok := patch["payment"]; ok {
		e.setPayment(patch, raw)
	}
	return patch
}

func (e *Executor) setPayment(patch db.Patch, raw any) payment.Descriptor {
	d := payment.Normalize(raw)
	patch["payment"] = d.Fields()
	patch["paymentMode"] = d.Code
	return d
}

// preserve carries the stored quote into an acceptance. Fields the caller
// supplied win unless the stored proforma is locked. A failed read is
// logged and the transition proceeds without the snapshot.
func (e *Executor) preserve(ctx context.Context, c *change, patch db.Patch, log *zap.Logger) []string {
	if c.current == nil {
		doc, err := e.read(ctx, c.ref)
		if err != nil {
			log.Warn("reading order for snapshot failed", zap.Error(err))
			return nil
		}
		c.current = doc
	}

	locked := c.current.Lookup("proformaLocked").Bool()
	var preserved []string
	for _, field := range snapshotFields {
		stored, ok := c.current[field]
		if !ok || stored == nil {
			continue
		}
		supplied := suppliedKeys(patch, field)
		if len(supplied) > 0 {
			if !locked {
				continue
			}
			log.Warn("proforma locked; ignoring supplied field", zap.Strings("fields", supplied))
			for _, k := range supplied {
				delete(patch, k)
			}
		}
		patch[field] = stored
		preserved = append(preserved, field)
	}
	return preserved
}

// suppliedKeys returns the patch keys that write field or a path under it.
func suppliedKeys(patch db.Patch, field string) []string {
	var keys []string
	for k := range patch {
		if k == field || strings.HasPrefix(k, field+".") {
			keys = append(keys, k)
		}
	}
	return keys
}

func (e *Executor) read(ctx context.Context, ref OrderRef) (db.Document, error) {
	doc, err := e.store.Get(ctx, e.layout.OrderDoc(ref))
	if errors.Is(err, db.ErrDocumentNotFound) {
		return nil, ErrOrderNotFound
	}
	return doc, err
}

// reject records a refused call. Targets that do not resolve share one
// metric label.
func (e *Executor) reject(ctx context.Context, run *fsm.ExecutionFSM, to string, err error) error {
	e.step(ctx, run, fsm.StepReject)
	label := invalidTarget
	if code, ok := status.CodeOf(to); ok {
		label = string(code)
	}
	e.metrics.Transition(label, metrics.OutcomeRejected)
	e.logger.Info("transition rejected", zap.String("to", to), zap.Error(err))
	return err
}

// step advances run. Phase tracking ignores cancellation; a step the
// machine refuses is logged with the phase it was refused in.
func (e *Executor) step(ctx context.Context, run *fsm.ExecutionFSM, name string) {
	if err := run.Step(context.WithoutCancel(ctx), name); err != nil {
		e.logger.Debug("execution step refused",
			zap.String("step", name),
			zap.String("phase", run.Current()),
			zap.Error(err))
	}
}

// track starts an execution record for one call and logs its phases.
func (e *Executor) track(ref OrderRef) *fsm.ExecutionFSM {
	run := fsm.NewExecutionFSM()
	if ce := e.logger.Check(zap.DebugLevel, "phase"); ce == nil {
		return run
	}
	for _, phase := range []string{fsm.PhaseValidating, fsm.PhasePreserving, fsm.PhasePersisting, fsm.PhaseMirroring, fsm.PhaseDone} {
		run.OnEnter(phase, func() {
			e.logger.Debug("execution phase",
				zap.String("order_id", ref.OrderID),
				zap.String("phase", phase))
		})
	}
	return run
}

// Get reads an order and classifies it.
func (e *Executor) Get(ctx context.Context, ref OrderRef) (*Order, error) {
	if missing := ref.missing(); len(missing) > 0 {
		return nil, &MissingFieldError{Fields: missing}
	}
	doc, err := e.read(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "read", Err: err}
	}
	return e.classify(ref, doc), nil
}

// List returns an owner's orders, newest first. A non-empty code must
// resolve to a status and restricts the result to orders stored with it.
func (e *Executor) List(ctx context.Context, owner, code string, limit int) ([]*Order, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, &MissingFieldError{Fields: []string{"ownerId"}}
	}
	var filter string
	if strings.TrimSpace(code) != "" {
		c, ok := status.CodeOf(code)
		if !ok {
			return nil, &InvalidStatusError{Input: code}
		}
		filter = string(c)
	}

	collection := e.layout.OrderDoc(OrderRef{OwnerID: owner}).Collection
	snaps, err := e.store.List(ctx, collection, filter, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	out := make([]*Order, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, e.classify(OrderRef{OwnerID: owner, OrderID: snap.Ref.ID}, snap.Data))
	}
	return out, nil
}

func (e *Executor) classify(ref OrderRef, doc db.Document) *Order {
	rec := recordOf(doc)
	code, _ := rec.Code()
	if ref.CounterpartyID == "" {
		ref.CounterpartyID = counterpartyOf(doc)
	}
	return &Order{
		Ref:             ref,
		Data:            doc,
		Code:            code,
		Label:           status.Label(code),
		Next:            e.graph.NextStatuses(string(code)),
		Terminal:        status.IsTerminal(rec),
		Passive:         status.IsPassive(rec),
		ProformaPending: status.IsProformaPending(rec),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
