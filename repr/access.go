package repr

// JVM access flags as found in class files.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccSuper      = 0x0020
	AccTransitive = 0x0020
	AccBridge     = 0x0040
	AccVolatile   = 0x0040
	AccVarargs    = 0x0080
	AccTransient  = 0x0080
	AccNative     = 0x0100
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccStrict     = 0x0800
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
	AccModule     = 0x8000
)

const visibilityMask = AccPublic | AccProtected | AccPrivate

// IsPackageLocal reports whether access carries no visibility modifier.
func IsPackageLocal(access int) bool {
	return access&visibilityMask == 0
}

// weakerAccess reports whether access widened from past to now.
func weakerAccess(past, now int) bool {
	return (past&AccPrivate != 0 && now&AccPrivate == 0) ||
		(past&AccProtected != 0 && now&AccPublic != 0) ||
		(IsPackageLocal(past) && now&AccProtected != 0)
}

// accessRank orders visibilities from private (0) to public (3).
func accessRank(access int) int {
	switch {
	case access&AccPublic != 0:
		return 3
	case access&AccProtected != 0:
		return 2
	case access&AccPrivate != 0:
		return 0
	}
	return 1
}
