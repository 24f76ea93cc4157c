// Copyright 2026 The Chronosteward Authors
// This file is part of Chronosteward.
//
// Chronosteward is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Chronosteward is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Chronosteward. If not, see <http://www.gnu.org/licenses/>.

package amortized

import (
	"fmt"

	"github.com/chronosteward/chronosteward/chrono"
)

// scheduleEvent installs or replaces the schedule for an ExtendedTime,
// marking it for reconciliation regardless of whether anything was there
// before — spec §3's invariant that events_needing_attention holds every
// event whose schedule differs from its last-recorded execution.
func (st *Steward[T, K]) scheduleEvent(at chrono.ExtendedTime[T], ev chrono.Event[T, K], scheduledBy *rowPredictor) {
	es := st.sched.ensureState(at)
	es.scheduled = ev
	es.scheduledBy = scheduledBy
	st.sched.markEventNeedsAttention(at)
}

// unschedulePredicted drops a predictor's previously scheduled event,
// provided it is still that predictor's to drop (a fiat insert or a
// different predictor may have since claimed the same ExtendedTime, in
// which case this is not our event to touch).
func (st *Steward[T, K]) unschedulePredicted(at chrono.ExtendedTime[T], rp rowPredictor) {
	es, ok := st.sched.events[at]
	if !ok || es.scheduledBy == nil || *es.scheduledBy != rp {
		return
	}
	es.scheduled = nil
	es.scheduledBy = nil
	st.sched.markEventNeedsAttention(at)
}

// clearPredictionsFrom drops every prediction a (row, predictor) history
// holds whose made_at matches floor (exact=true, used when undoing an
// event per spec §4.5 step 1) or is >= floor (exact=false, spec §4.6 step
// 1), unscheduling whatever events those predictions scheduled and
// removing their dependency edges. A surviving prediction made before the
// floor but promising an event strictly after it is also revoked: whatever
// it said would happen is about to be re-derived, and a stale scheduled
// event must not outlive the prediction run that replaces it. The history
// is then re-enrolled as missing — at floor, or at its already-pending
// earlier floor if one exists (re-enrolling later would lose it).
func (st *Steward[T, K]) clearPredictionsFrom(rp rowPredictor, ph *predictionHistory[T, K], floor chrono.ExtendedTime[T], exact bool) {
	kept := ph.preds[:0]
	for _, p := range ph.preds {
		var match bool
		if exact {
			match = p.madeAt.Compare(floor) == 0
		} else {
			match = p.madeAt.Compare(floor) >= 0
		}
		if !match {
			if !exact && p.hasWhat && p.whatAt.Compare(floor) > 0 {
				st.unschedulePredicted(p.whatAt, rp)
				p.hasWhat = false
			}
			kept = append(kept, p)
			continue
		}
		st.deps.RemovePredictionDependencies(p.accessed, rp, p.validUntil, p.bounded)
		if p.hasWhat {
			st.unschedulePredicted(p.whatAt, rp)
		}
	}
	ph.preds = kept

	enrollAt := floor
	if ph.nextNeeded != nil {
		if ph.nextNeeded.Compare(floor) < 0 {
			enrollAt = *ph.nextNeeded
		}
		st.sched.clearPredictionMissing(rp, *ph.nextNeeded)
	}
	f := enrollAt
	ph.nextNeeded = &f
	st.sched.markPredictionMissing(rp, enrollAt)
}

// invalidatePredictionsMadeExactlyAt implements spec §4.5 step 1's "any
// prediction whose made_at == e must be invalidated", run while undoing
// event e's prior execution — the execution that prediction's run may
// have observed (e.g. via a field e itself wrote) may no longer exist.
func (st *Steward[T, K]) invalidatePredictionsMadeExactlyAt(e chrono.ExtendedTime[T]) {
	for rp, ph := range st.sched.predictionHistories {
		needsClear := false
		for _, p := range ph.preds {
			if p.madeAt.Compare(e) == 0 {
				needsClear = true
				break
			}
		}
		if needsClear {
			st.clearPredictionsFrom(rp, ph, e, true)
		}
	}
}

// lowerNextNeeded implements spec §4.3's invalidation of a prediction that
// read a field which just changed: its next_needed floor is raised in
// urgency to no later than changeTime.
func (st *Steward[T, K]) lowerNextNeeded(rp rowPredictor, changeTime chrono.ExtendedTime[T]) {
	ph, ok := st.sched.predictionHistories[rp]
	if !ok {
		return
	}
	if ph.nextNeeded != nil && ph.nextNeeded.Compare(changeTime) <= 0 {
		return
	}
	if ph.nextNeeded != nil {
		st.sched.clearPredictionMissing(rp, *ph.nextNeeded)
	}
	f := changeTime
	ph.nextNeeded = &f
	st.sched.markPredictionMissing(rp, changeTime)
}

// invalidateReadersOf propagates spec §4.3's invalidation for a change to
// id at changeTime: events after the change are marked for reconciliation,
// predictions whose validity does not survive it have their floors lowered,
// and every predictor watching id's column is (re-)enrolled for the row —
// creating the PredictionHistory if this is the first time the field
// exists. predictorFloor is the time re-predictions are floored at: the
// change time itself when the change is a live write, or the field's
// surviving last-change time when the change is a retroactive removal —
// a removed instant must never become a prediction floor, because a
// steward replaying the repaired timeline from scratch would never make a
// prediction there, and the two must derive identical event times.
func (st *Steward[T, K]) invalidateReadersOf(id chrono.FieldId, changeTime, predictorFloor chrono.ExtendedTime[T]) {
	events, preds := st.deps.Invalidated(id, changeTime)
	for _, evT := range events {
		st.sched.markEventNeedsAttention(evT)
	}
	for _, rp := range preds {
		st.lowerNextNeeded(rp, predictorFloor)
	}
	for _, pid := range st.tables.PredictorsByColumn[id.Column] {
		rp := rowPredictor{row: id.Row, predictor: pid}
		if _, ok := st.sched.predictionHistories[rp]; ok {
			st.lowerNextNeeded(rp, predictorFloor)
		} else {
			st.sched.ensureHistory(rp, predictorFloor)
		}
	}
}

// reconcileEvent implements spec §4.5: undo e's prior execution if any,
// drop it if no longer scheduled, else re-run it and install the new
// execution, propagating invalidations to every field it actually changed.
func (st *Steward[T, K]) reconcileEvent(e chrono.ExtendedTime[T]) {
	es, ok := st.sched.events[e]
	if !ok {
		chrono.PanicCorruptionf("amortized: scheduler selected event %s with no EventState", e)
	}

	if es.exec != nil {
		prior := es.exec
		for _, fid := range prior.fieldsChanged {
			st.store.RemoveAt(fid, e)
			// The field's surviving last change (if any) is the floor
			// re-predictions restart from; e itself no longer exists.
			floor := e
			if lastReal, ok := st.store.LastRecordAt(fid, e); ok {
				floor = lastReal
			}
			st.invalidateReadersOf(fid, e, floor)
		}
		for _, fid := range prior.fieldsRead {
			st.deps.RemoveEventDependency(fid, e)
		}
		st.invalidatePredictionsMadeExactlyAt(e)
		es.exec = nil
	}

	if es.scheduled == nil {
		st.sched.clearEventNeedsAttention(e)
		st.sched.deleteState(e)
		return
	}

	mut := newMutator[T, K](st.store, st.tables, st.constants, e)
	es.scheduled.Execute(mut)

	fieldsRead := mut.readFields()
	fieldsChanged := make([]chrono.FieldId, 0, len(mut.writes))
	seenWrite := make(map[chrono.FieldId]struct{}, len(mut.writes))
	seenChanged := make(map[chrono.FieldId]struct{}, len(mut.writes))
	var checksum uint64
	for _, w := range mut.writes {
		if _, dup := seenWrite[w.id]; !dup {
			seenWrite[w.id] = struct{}{}
			value, _, _ := st.store.Read(w.id, e, true)
			checksum = accumulateChecksum(checksum, w.id, value)
		}
		if !w.changed {
			// A no-op write still depends on the field's prior value: an
			// earlier edit to it must re-execute this event.
			fieldsRead = append(fieldsRead, w.id)
			continue
		}
		// Only changed writes leave history entries behind, so only they
		// need undoing on a future re-reconciliation.
		if _, dup := seenChanged[w.id]; !dup {
			seenChanged[w.id] = struct{}{}
			fieldsChanged = append(fieldsChanged, w.id)
		}
		st.invalidateReadersOf(w.id, e, e)
	}

	es.exec = &eventExecution[T]{fieldsRead: fieldsRead, fieldsChanged: fieldsChanged, checksum: checksum}
	for _, fid := range fieldsRead {
		st.deps.AddEventDependency(fid, e)
	}
	st.sched.clearEventNeedsAttention(e)
	st.log.Debug("reconciled event", "time", e, "reads", len(fieldsRead), "writes", len(fieldsChanged))
}

// reconcilePrediction implements spec §4.6: clear stale predictions for
// (row, predictor) at/after floor, drop the history if the watched column
// is gone and nothing remains, else re-run the predictor and record a
// fresh Prediction. The only error it returns is ErrInvalidInput from
// deriveEventTime's MaxIteration bound; the prediction stays enrolled as
// missing, so the condition resurfaces on every further Step.
func (st *Steward[T, K]) reconcilePrediction(rp rowPredictor, floor chrono.ExtendedTime[T]) error {
	ph, ok := st.sched.predictionHistories[rp]
	if !ok {
		chrono.PanicCorruptionf("amortized: scheduler selected missing prediction %v at %s with no history", rp, floor)
	}

	st.clearPredictionsFrom(rp, ph, floor, false)

	predictor, ok := st.tables.Predictors[rp.predictor]
	if !ok {
		chrono.PanicCorruptionf("amortized: predictor %s not registered", rp.predictor)
	}
	watchedColumn := st.watchedColumnOf(rp.predictor)
	_, _, colExists := st.store.Read(chrono.NewFieldId(rp.row, watchedColumn), floor, true)

	if !colExists && len(ph.preds) == 0 {
		st.sched.clearPredictionMissing(rp, floor)
		delete(st.sched.predictionHistories, rp)
		return nil
	}

	pa := newPredictorAccessor[T, K](st.store, st.tables, st.constants, floor, rp.row)
	predictor.Predict(pa, rp.row)

	if st.basics.AuditUnsafeNow() && pa.usedUnsafeNow {
		st.auditUnsafeNow(predictor, rp, floor, pa.predicted)
	}

	readValidUntil, readBounded := pa.finalizeValidity()
	accessed := pa.readFields()

	pred := &prediction[T, K]{accessed: accessed, madeAt: floor}

	if pa.predicted != nil && pa.predicted.atBase.Compare(floor.Base) >= 0 {
		et, err := st.deriveEventTime(rp, accessed, pa.predicted.atBase, floor)
		if err != nil {
			return err
		}
		pred.hasWhat = true
		pred.whatAt = et
		pred.whatEvent = pa.predicted.event
		st.scheduleEvent(et, pa.predicted.event, &rp)

		if !readBounded || et.Compare(readValidUntil) < 0 {
			readValidUntil, readBounded = et, true
		}
	}
	pred.validUntil, pred.bounded = readValidUntil, readBounded

	ph.preds = append(ph.preds, pred)

	st.sched.clearPredictionMissing(rp, floor)
	if pred.bounded {
		v := pred.validUntil
		ph.nextNeeded = &v
		st.sched.markPredictionMissing(rp, pred.validUntil)
	} else {
		ph.nextNeeded = nil
	}

	for _, fid := range accessed {
		st.deps.AddPredictionDependency(fid, rp, pred.validUntil, pred.bounded)
	}
	st.log.Debug("reconciled prediction", "row", rp.row, "predictor", rp.predictor, "floor", floor, "bounded", pred.bounded)
	return nil
}

// watchedColumnOf looks up the column a predictor was registered against
// in PredictorsByColumn (built by registry.Builder.AddPredictor), the
// inverse of the by-column index the registry keeps for scheduling new
// predictions when a column's field is first written.
func (st *Steward[T, K]) watchedColumnOf(id chrono.PredictorId) chrono.ColumnId {
	for col, ids := range st.tables.PredictorsByColumn {
		for _, pid := range ids {
			if pid == id {
				return col
			}
		}
	}
	chrono.PanicCorruptionf("amortized: predictor %s has no registered watched column", id)
	return 0
}

// deriveEventTime computes spec §4.1's ExtendedTime for a predicted event:
// base = t; iteration = 0 when the event lands strictly after the
// prediction's floor base, else one past the floor's own iteration
// (bounded by MaxIteration) — the "iteration of last predecessor at same
// base, plus-one" rule, where the predecessor is the change the prediction
// was made at; id = H(predictor, row, dependency_hash, base-bytes). Keyed
// off the prediction's own floor rather than any global per-base counter
// so that a steward replaying from a snapshot derives the same iteration a
// continuously advanced steward did. Exceeding MaxIteration is
// ErrInvalidInput, surfaced through Step and SnapshotBefore.
func (st *Steward[T, K]) deriveEventTime(rp rowPredictor, accessed []chrono.FieldId, base T, floor chrono.ExtendedTime[T]) (chrono.ExtendedTime[T], error) {
	var iteration chrono.IterationType
	if base.Compare(floor.Base) == 0 {
		if floor.Iteration >= chrono.ResolveMaxIteration(st.basics) {
			var zero chrono.ExtendedTime[T]
			return zero, fmt.Errorf("%w: max_iteration exceeded deriving a predicted event for predictor %s row %s at base %v", chrono.ErrInvalidInput, rp.predictor, rp.row, base)
		}
		iteration = floor.Iteration + 1
	}
	dep := dependencyHash[T](accessed)
	id := deriveTimeID[T](rp.predictor, rp.row, dep, st.encode(base))
	return chrono.ExtendedTime[T]{Base: base, Iteration: iteration, Id: id}, nil
}

// auditUnsafeNow implements the opt-in audit mode SPEC_FULL.md's Open
// Questions decision describes: re-run the same predictor once more at an
// infinitesimally later reading of "now" and require the same prediction
// as original (the same presence or absence of a predicted event, at the
// same base time), panicking with a CorruptionError on divergence. The
// predicted event values themselves are not compared. Off unless
// Basics.AuditUnsafeNow() is true, since it doubles predictor cost.
func (st *Steward[T, K]) auditUnsafeNow(predictor chrono.Predictor[T, K], rp rowPredictor, floor chrono.ExtendedTime[T], original *predictedCall[T, K]) {
	laterFloor := immediatelyAfter(floor)
	pa := newPredictorAccessor[T, K](st.store, st.tables, st.constants, laterFloor, rp.row)
	predictor.Predict(pa, rp.row)
	if (pa.predicted == nil) == (original == nil) && (original == nil || pa.predicted.atBase.Compare(original.atBase) == 0) {
		return
	}
	chrono.PanicCorruptionf("amortized: predictor %s row %s used UnsafeNow and predicted a different outcome when audited at %s", rp.predictor, rp.row, laterFloor)
}
