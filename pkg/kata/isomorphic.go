// Package kata содержит небольшие самостоятельные алгоритмы над строками и числами.
package kata

// IsIsomorphic сообщает, можно ли получить t из s взаимно однозначной
// заменой символов с сохранением порядка. Сравнение идёт по рунам.
func IsIsomorphic(s, t string) bool {
	rs, rt := []rune(s), []rune(t)
	if len(rs) != len(rt) {
		return false
	}

	forward := make(map[rune]rune, len(rs))
	backward := make(map[rune]rune, len(rt))

	for i, a := range rs {
		b := rt[i]
		if mapped, ok := forward[a]; ok && mapped != b {
			return false
		}
		if mapped, ok := backward[b]; ok && mapped != a {
			return false
		}
		forward[a] = b
		backward[b] = a
	}

	return true
}
