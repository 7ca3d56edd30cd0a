package csm

import "encoding/json"

// The CSM's closed sum types (SyncEvent, ConsensusWrite, SyncAction) need a
// stable wire form for the embedded key-value store. None of the libraries
// pulled into this tree offer a schema-free tagged-union codec (gorm/sarama
// serialize flat rows/messages, zap and the metrics libraries don't touch
// persistence at all), so each sum is wrapped in a {kind, data} envelope
// and round-tripped through encoding/json — the same approach the teacher
// takes for its handful of JSON-RPC argument structs.

type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func encodeSyncEvent(ev SyncEvent) ([]byte, error) {
	var kind string
	switch ev.(type) {
	case L1BlockSeen:
		kind = "L1BlockSeen"
	case L1DABatch:
		kind = "L1DABatch"
	case L2BlockReceived:
		kind = "L2BlockReceived"
	case L2BlockExecuted:
		kind = "L2BlockExecuted"
	default:
		return nil, newErr(Unsupported, ev)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: kind, Data: data})
}

func decodeSyncEvent(b []byte) (SyncEvent, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "L1BlockSeen":
		var v L1BlockSeen
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case "L1DABatch":
		var v L1DABatch
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case "L2BlockReceived":
		var v L2BlockReceived
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case "L2BlockExecuted":
		var v L2BlockExecuted
		err := json.Unmarshal(env.Data, &v)
		return v, err
	default:
		return nil, newErr(Unsupported, env.Kind)
	}
}

func encodeEventRecord(r EventRecord) ([]byte, error) {
	evBytes, err := encodeSyncEvent(r.Event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		TimestampMs uint64          `json:"timestamp_ms"`
		Event       json.RawMessage `json:"event"`
	}{TimestampMs: r.TimestampMs, Event: evBytes})
}

func decodeEventRecord(index uint64, b []byte) (EventRecord, error) {
	var wire struct {
		TimestampMs uint64          `json:"timestamp_ms"`
		Event       json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return EventRecord{}, err
	}
	ev, err := decodeSyncEvent(wire.Event)
	if err != nil {
		return EventRecord{}, err
	}
	return EventRecord{Index: index, TimestampMs: wire.TimestampMs, Event: ev}, nil
}

func encodeL2Block(b *L2Block) ([]byte, error) {
	return json.Marshal(b)
}

func decodeL2Block(raw []byte) (*L2Block, error) {
	var b L2Block
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func encodeConsensusOutput(out ConsensusOutput) ([]byte, error) {
	writes := make([]envelope, 0, len(out.Writes))
	for _, w := range out.Writes {
		var kind string
		switch w.(type) {
		case AcceptL1Block:
			kind = "AcceptL1Block"
		case AcceptL2Block:
			kind = "AcceptL2Block"
		case UpdateBuried:
			kind = "UpdateBuried"
		case ObserveL2Batch:
			kind = "ObserveL2Batch"
		case InitGenesis:
			kind = "InitGenesis"
		default:
			return nil, newErr(Unsupported, w)
		}
		data, err := json.Marshal(w)
		if err != nil {
			return nil, err
		}
		writes = append(writes, envelope{Kind: kind, Data: data})
	}

	actions := make([]envelope, 0, len(out.Actions))
	for _, a := range out.Actions {
		var kind string
		switch a.(type) {
		case TryCheckBlock:
			kind = "TryCheckBlock"
		case ExtendTip:
			kind = "ExtendTip"
		case RevertTip:
			kind = "RevertTip"
		case UpdateTip:
			kind = "UpdateTip"
		default:
			return nil, newErr(Unsupported, a)
		}
		data, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		actions = append(actions, envelope{Kind: kind, Data: data})
	}

	return json.Marshal(struct {
		Writes  []envelope `json:"writes"`
		Actions []envelope `json:"actions"`
	}{Writes: writes, Actions: actions})
}

func decodeConsensusOutput(b []byte) (ConsensusOutput, error) {
	var wire struct {
		Writes  []envelope `json:"writes"`
		Actions []envelope `json:"actions"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return ConsensusOutput{}, err
	}

	out := ConsensusOutput{}
	for _, env := range wire.Writes {
		w, err := decodeConsensusWrite(env)
		if err != nil {
			return ConsensusOutput{}, err
		}
		out.Writes = append(out.Writes, w)
	}
	for _, env := range wire.Actions {
		a, err := decodeSyncAction(env)
		if err != nil {
			return ConsensusOutput{}, err
		}
		out.Actions = append(out.Actions, a)
	}
	return out, nil
}

func decodeConsensusWrite(env envelope) (ConsensusWrite, error) {
	switch env.Kind {
	case "AcceptL1Block":
		var v AcceptL1Block
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case "AcceptL2Block":
		var v AcceptL2Block
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case "UpdateBuried":
		var v UpdateBuried
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case "ObserveL2Batch":
		var v ObserveL2Batch
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case "InitGenesis":
		var v InitGenesis
		err := json.Unmarshal(env.Data, &v)
		return v, err
	default:
		return nil, newErr(Unsupported, env.Kind)
	}
}

func decodeSyncAction(env envelope) (SyncAction, error) {
	switch env.Kind {
	case "TryCheckBlock":
		var v TryCheckBlock
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case "ExtendTip":
		var v ExtendTip
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case "RevertTip":
		var v RevertTip
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case "UpdateTip":
		var v UpdateTip
		err := json.Unmarshal(env.Data, &v)
		return v, err
	default:
		return nil, newErr(Unsupported, env.Kind)
	}
}
