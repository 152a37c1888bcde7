// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/landvec/core"
)

// Metadata values are a closed union on the wire. Each value is prefixed
// with a kind tag so heterogeneous maps round-trip without reflection.
const (
	kindString = iota
	kindBool
	kindInt
	kindFloat
	kindStringList
)

var (
	vectorSer     = ord.NewSliceSer[float32](raw.Float32)
	stringListSer = ord.NewSliceSer[string](ord.String)
	metadataSer   = ord.NewMapSer[string, any](ord.String, metaValueSer{})
)

// metaValueSer serializes a single metadata value with a kind tag.
type metaValueSer struct{}

var _ mus.Serializer[any] = metaValueSer{}

func (metaValueSer) Marshal(v any, bs []byte) (n int) {
	switch t := v.(type) {
	case string:
		n = varint.Int.Marshal(kindString, bs)
		n += ord.String.Marshal(t, bs[n:])
	case bool:
		n = varint.Int.Marshal(kindBool, bs)
		n += ord.Bool.Marshal(t, bs[n:])
	case int:
		n = varint.Int.Marshal(kindInt, bs)
		n += varint.Int64.Marshal(int64(t), bs[n:])
	case int64:
		n = varint.Int.Marshal(kindInt, bs)
		n += varint.Int64.Marshal(t, bs[n:])
	case float64:
		n = varint.Int.Marshal(kindFloat, bs)
		n += raw.Float64.Marshal(t, bs[n:])
	case float32:
		n = varint.Int.Marshal(kindFloat, bs)
		n += raw.Float64.Marshal(float64(t), bs[n:])
	case []string:
		n = varint.Int.Marshal(kindStringList, bs)
		n += stringListSer.Marshal(t, bs[n:])
	default:
		// Sanitization upstream guarantees this is unreachable; store an
		// empty string rather than corrupt the record.
		n = varint.Int.Marshal(kindString, bs)
		n += ord.String.Marshal("", bs[n:])
	}
	return n
}

func (metaValueSer) Unmarshal(bs []byte) (v any, n int, err error) {
	kind, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}

	var m int
	switch kind {
	case kindString:
		v, m, err = ord.String.Unmarshal(bs[n:])
	case kindBool:
		v, m, err = ord.Bool.Unmarshal(bs[n:])
	case kindInt:
		v, m, err = varint.Int64.Unmarshal(bs[n:])
	case kindFloat:
		v, m, err = raw.Float64.Unmarshal(bs[n:])
	case kindStringList:
		v, m, err = stringListSer.Unmarshal(bs[n:])
	default:
		return nil, n, fmt.Errorf("unknown metadata value kind %d", kind)
	}
	return v, n + m, err
}

func (metaValueSer) Size(v any) (size int) {
	switch t := v.(type) {
	case string:
		return varint.Int.Size(kindString) + ord.String.Size(t)
	case bool:
		return varint.Int.Size(kindBool) + ord.Bool.Size(t)
	case int:
		return varint.Int.Size(kindInt) + varint.Int64.Size(int64(t))
	case int64:
		return varint.Int.Size(kindInt) + varint.Int64.Size(t)
	case float64:
		return varint.Int.Size(kindFloat) + raw.Float64.Size(t)
	case float32:
		return varint.Int.Size(kindFloat) + raw.Float64.Size(float64(t))
	case []string:
		return varint.Int.Size(kindStringList) + stringListSer.Size(t)
	default:
		return varint.Int.Size(kindString) + ord.String.Size("")
	}
}

func (s metaValueSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

// MarshalVectorRecord serializes a VectorRecord to bytes.
func MarshalVectorRecord(record *core.VectorRecord) []byte {
	size := ord.String.Size(record.ID) +
		vectorSer.Size(record.Values) +
		metadataSer.Size(record.Metadata)

	buf := make([]byte, size)
	n := ord.String.Marshal(record.ID, buf)
	n += vectorSer.Marshal(record.Values, buf[n:])
	metadataSer.Marshal(record.Metadata, buf[n:])
	return buf
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(data []byte) (*core.VectorRecord, error) {
	record := &core.VectorRecord{}

	id, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	record.ID = id

	values, m, err := vectorSer.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	record.Values = values
	n += m

	metadata, _, err := metadataSer.Unmarshal(data[n:])
	if err != nil {
		return nil, err
	}
	record.Metadata = metadata
	return record, nil
}
