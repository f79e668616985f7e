package aggregate

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint 计算贡献内容指纹：档案ID + 排序后的曲目ID集合
// 指纹相同的重复提交是无操作，不会重复计入聚合
func Fingerprint(profileID string, trackIDs []string) string {
	sorted := make([]string, len(trackIDs))
	copy(sorted, trackIDs)
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(profileID))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(h.Sum(nil))
}
