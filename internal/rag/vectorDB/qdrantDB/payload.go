package qdrantDB

import (
	"fmt"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/qdrant/go-client/qdrant"
)

func toPayload(chunk commonModels.DocChunk) map[string]any {
	meta := make(map[string]any, len(chunk.Metadata))
	for k, v := range chunk.Metadata {
		meta[k] = scalar(v)
	}
	return map[string]any{
		payloadContent:  chunk.Text,
		payloadChunkId:  chunk.ChunkId,
		payloadOrder:    chunk.Order,
		payloadMetadata: meta,
	}
}

// scalar narrows metadata values to the types the qdrant value map accepts.
func scalar(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64:
		return t
	case uint:
		return int64(t)
	case uint32:
		return int64(t)
	default:
		return fmt.Sprint(t)
	}
}

func fromPayload(payload map[string]*qdrant.Value) commonModels.DocChunk {
	chunk := commonModels.DocChunk{
		Text:     payload[payloadContent].GetStringValue(),
		ChunkId:  payload[payloadChunkId].GetStringValue(),
		Order:    int(payload[payloadOrder].GetIntegerValue()),
		Metadata: map[string]any{},
	}
	if st := payload[payloadMetadata].GetStructValue(); st != nil {
		for k, v := range st.GetFields() {
			chunk.Metadata[k] = fromValue(v)
		}
	}
	return chunk
}

func fromValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return int(k.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_StructValue:
		out := map[string]any{}
		for key, inner := range k.StructValue.GetFields() {
			out[key] = fromValue(inner)
		}
		return out
	default:
		return nil
	}
}
