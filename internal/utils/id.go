package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

/**
 * Generate an opaque record id
 * @returns {string} Returns "{8 hex chars}-{unix timestamp}"
 * @description
 * - Used for environments and service data records; the timestamp part
 *   keeps ids roughly sortable by creation time
 */
func NewID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand 失败时退化为时间散列
		return fmt.Sprintf("%08x-%d", time.Now().UnixNano()&0xffffffff, time.Now().Unix())
	}
	return fmt.Sprintf("%s-%d", hex.EncodeToString(buf), time.Now().Unix())
}
