package badger

import (
	"bytes"
	"encoding/binary"

	"github.com/poiesic/graphrag/core"
)

// Key prefixes for different data types.
// Every key continues with the space and a NUL separator, so one space's
// keys never share a prefix with another's.
const (
	chunkPrefix    = "chunk:"
	chunkIDPrefix  = "chunkid:"
	conceptPrefix  = "concept:"
	edgePrefix     = "edge:"
	explainsPrefix = "explains:"
	chunkSeqKey    = "chunkseq"
	sep            = 0x00
)

// spacePrefixes lists every per-space key family, used by ClearSpace.
var spacePrefixes = []string{chunkPrefix, chunkIDPrefix, conceptPrefix, edgePrefix, explainsPrefix}

// makeSpacePrefix returns prefix + space + NUL.
func makeSpacePrefix(prefix, space string) []byte {
	buf := make([]byte, 0, len(prefix)+len(space)+1)
	buf = append(buf, prefix...)
	buf = append(buf, space...)
	return append(buf, sep)
}

// makeChunkKey generates the key of a chunk node.
// Format: chunk:space\0seq (seq in BigEndian so keys sort in insertion order)
func makeChunkKey(space string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(makeSpacePrefix(chunkPrefix, space), seq)
}

// makeChunkIDKey generates the index entry mapping a chunk ID to a chunk node.
// Format: chunkid:space\0chunkID\0seq
func makeChunkIDKey(space string, id core.ID, seq uint64) []byte {
	buf := binary.BigEndian.AppendUint64(makeSpacePrefix(chunkIDPrefix, space), uint64(id))
	return binary.BigEndian.AppendUint64(buf, seq)
}

// makePartialChunkIDKey generates the prefix of all nodes sharing a chunk ID.
func makePartialChunkIDKey(space string, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(makeSpacePrefix(chunkIDPrefix, space), uint64(id))
}

// makeConceptKey generates the key of a concept node.
// Format: concept:space\0name
func makeConceptKey(space, name string) []byte {
	return append(makeSpacePrefix(conceptPrefix, space), name...)
}

// makeEdgeKey generates the key of a RELATED_TO edge.
// Format: edge:space\0source\0relation\0target
func makeEdgeKey(space string, t core.Triple) []byte {
	buf := makeSpacePrefix(edgePrefix, space)
	buf = append(buf, t.Source...)
	buf = append(buf, sep)
	buf = append(buf, t.Relation...)
	buf = append(buf, sep)
	return append(buf, t.Target...)
}

// parseEdgeKey recovers the triple from an edge key.
func parseEdgeKey(space string, key []byte) (core.Triple, bool) {
	rest := bytes.TrimPrefix(key, makeSpacePrefix(edgePrefix, space))
	parts := bytes.Split(rest, []byte{sep})
	if len(parts) != 3 {
		return core.Triple{}, false
	}
	return core.Triple{Source: string(parts[0]), Relation: string(parts[1]), Target: string(parts[2])}, true
}

// makeExplainsKey generates the EXPLAINED_BY link of a concept to a chunk ID.
// Format: explains:space\0name\0chunkID
func makeExplainsKey(space, name string, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(makePartialExplainsKey(space, name), uint64(id))
}

// makePartialExplainsKey generates the prefix of all links of one concept.
func makePartialExplainsKey(space, name string) []byte {
	buf := append(makeSpacePrefix(explainsPrefix, space), name...)
	return append(buf, sep)
}
