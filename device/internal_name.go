package device

import "strings"

// InternalName identifies an outlet as "room/name", for example
// "living_room/lamp". The room part is optional.
type InternalName string

func (n InternalName) split() (room, name string) {
	s := strings.SplitN(string(n), "/", 2)
	if len(s) > 1 {
		return s[0], s[1]
	}
	return "", s[0]
}

func (n InternalName) Room() string {
	room, _ := n.split()
	return title(room)
}

func (n InternalName) Name() string {
	_, name := n.split()
	return title(name)
}

func (n InternalName) String() string {
	return string(n)
}

func title(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}

	return strings.Join(words, " ")
}
