package transform

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// hashKey joins the parts with '|' and returns the hex SHA1. Key assembly
// runs once per response item during live polling, so the scratch buffer is
// pooled.
func hashKey(parts ...string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for i, part := range parts {
		if i > 0 {
			_ = buf.WriteByte('|')
		}
		_, _ = buf.WriteString(part)
	}
	sum := sha1.Sum(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// syntheticPlayerID mints a deterministic negative id for a player the feed
// did not identify. The same (fixture, team, name, ordinal) always maps to
// the same id, so repeated transforms never self-conflict on UPSERT.
func syntheticPlayerID(fixtureID, teamID int64, name string, ordinal int) int64 {
	key := hashKey(
		strconv.FormatInt(fixtureID, 10),
		strconv.FormatInt(teamID, 10),
		name,
		strconv.Itoa(ordinal),
	)
	sum := sha1.Sum([]byte(key))
	id := int64(binary.BigEndian.Uint64(sum[:8]) & (1<<62 - 1))
	if id == 0 {
		id = 1
	}
	return -id
}

func formatOptInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
