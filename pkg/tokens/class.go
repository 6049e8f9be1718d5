package tokens

import "fmt"

// Class selects the signing key and lifetime of a token.
type Class uint8

const (
	ClassAccess Class = iota + 1
	ClassRefresh
	ClassReset
)

var classNames = map[Class]string{
	ClassAccess:  "access",
	ClassRefresh: "refresh",
	ClassReset:   "reset",
}

// Classes lists every token class in a stable order.
func Classes() []Class {
	return []Class{ClassAccess, ClassRefresh, ClassReset}
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

func (c Class) Valid() bool {
	_, ok := classNames[c]
	return ok
}
