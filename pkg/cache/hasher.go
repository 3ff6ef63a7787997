package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Params параметры эксперимента, определяющие результат перебора
type Params map[string]float64

// ParamsHash вычисляет хеш параметров для использования в ключе кэша.
// Порядок ключей не влияет на результат.
func ParamsHash(params Params) string {
	return ShortHash(canonical(params))
}

// canonical строит детерминированное представление параметров
func canonical(params Params) []byte {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(params[name], 'g', -1, 64))
		b.WriteByte(';')
	}
	return []byte(b.String())
}

// BuildExactKey строит ключ кэша для результата точного перебора
func BuildExactKey(experiment, paramsHash string) string {
	return fmt.Sprintf("exact:%s:%s", experiment, paramsHash)
}

// ShortHash короткий хеш (16 символов)
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
