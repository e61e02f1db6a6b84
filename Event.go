/*
Copyright 2011-2026 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package jxl

import (
	"fmt"
	"time"
)

// Event types emitted by the entropy core. There is no external logging
// dependency: sessions report progress by delivering Event values to
// registered Listeners, the same way the compression core this package is
// descended from does it.
const (
	EvtHistogramBuilt  = 0 // A histogram batch was built and normalized
	EvtTableBuilt      = 1 // Encoder/decoder ANS tables were derived
	EvtChunkEncoded    = 2 // A token chunk finished encoding
	EvtChunkDecoded    = 3 // A token chunk finished decoding
	EvtAnsFinalState   = 4 // The ANS final-state check ran
	EvtIccCheckpoint   = 5 // An ICCReader rolled back to its last checkpoint
	EvtIccNotEnoughData = 6 // An ICCReader suspended pending more bytes

	EVT_HASH_NONE   = 0
	EVT_HASH_32BITS = 32
	EVT_HASH_64BITS = 64
)

// Event reports a session milestone: what happened, how much data was
// involved, and optionally an integrity hash of the data in question.
type Event struct {
	eventType int
	id        int
	size      int64
	hash      uint64
	hashType  int
	eventTime time.Time
	msg       string
}

// NewEventFromString creates an Event that wraps a plain message.
func NewEventFromString(evtType, id int, msg string, evtTime time.Time) *Event {
	if evtTime.IsZero() {
		evtTime = time.Now()
	}

	return &Event{eventType: evtType, id: id, size: 0, msg: msg, eventTime: evtTime}
}

// NewEvent creates an Event carrying size and hash info. Returns nil if
// hashType is not one of EVT_HASH_NONE, EVT_HASH_32BITS, EVT_HASH_64BITS.
func NewEvent(evtType, id int, size int64, hash uint64, hashType int, evtTime time.Time) *Event {
	if evtTime.IsZero() {
		evtTime = time.Now()
	}

	if hashType != EVT_HASH_NONE && hashType != EVT_HASH_32BITS && hashType != EVT_HASH_64BITS {
		return nil
	}

	return &Event{eventType: evtType, id: id, size: size, hash: hash,
		hashType: hashType, eventTime: evtTime}
}

// Type returns the event type.
func (this *Event) Type() int {
	return this.eventType
}

// ID returns the session id the event belongs to.
func (this *Event) ID() int {
	return this.id
}

// Time returns the event timestamp.
func (this *Event) Time() time.Time {
	return this.eventTime
}

// Size returns the size info (tokens processed, or ICC bytes decoded).
func (this *Event) Size() int64 {
	return this.size
}

// Hash returns the hash info, meaningful only if HashType() != EVT_HASH_NONE.
func (this *Event) Hash() uint64 {
	return this.hash
}

// HashType returns EVT_HASH_NONE, EVT_HASH_32BITS or EVT_HASH_64BITS.
func (this *Event) HashType() int {
	return this.hashType
}

// String returns a string representation of this event. If the event
// wraps a message, the message is returned; otherwise one is built from
// the fields.
func (this *Event) String() string {
	if len(this.msg) > 0 {
		return this.msg
	}

	hash := ""
	t := ""
	id := ""

	if this.hashType != EVT_HASH_NONE {
		hash = fmt.Sprintf(", \"hash\": %x", this.hash)
	}

	if this.id >= 0 {
		id = fmt.Sprintf(", \"id\": %d", this.id)
	}

	switch this.eventType {
	case EvtHistogramBuilt:
		t = "HISTOGRAM_BUILT"

	case EvtTableBuilt:
		t = "TABLE_BUILT"

	case EvtChunkEncoded:
		t = "CHUNK_ENCODED"

	case EvtChunkDecoded:
		t = "CHUNK_DECODED"

	case EvtAnsFinalState:
		t = "ANS_FINAL_STATE"

	case EvtIccCheckpoint:
		t = "ICC_CHECKPOINT"

	case EvtIccNotEnoughData:
		t = "ICC_NOT_ENOUGH_DATA"
	}

	return fmt.Sprintf("{ \"type\":\"%s\"%s, \"size\":%d, \"time\":%d%s }", t, id, this.size,
		this.eventTime.UnixNano()/1000000, hash)
}

// Listener is implemented by event sinks.
type Listener interface {
	// ProcessEvent is called whenever a Listener receives an event.
	ProcessEvent(evt *Event)
}
