package types

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestSizes(t *testing.T) {
	be.Equal(t, TypeInt.Size(), 4)
	be.Equal(t, TypeChar.Size(), 1)
	be.Equal(t, PointerTo(TypeInt).Size(), 8)
	be.Equal(t, ArrayOf(TypeInt, 10).Size(), 40)
	be.Equal(t, ArrayOf(TypeChar, 3).Size(), 3)
}

func TestAlignment(t *testing.T) {
	be.Equal(t, TypeInt.Align(), 4)
	be.Equal(t, TypeChar.Align(), 1)
	be.Equal(t, PointerTo(TypeChar).Align(), 8)
	// Arrays align to their element, not their total size.
	be.Equal(t, ArrayOf(TypeInt, 10).Align(), 4)
	be.Equal(t, ArrayOf(PointerTo(TypeInt), 2).Align(), 8)
}

func TestEqualIsStructural(t *testing.T) {
	be.True(t, PointerTo(TypeInt).Equal(PointerTo(TypeInt)))
	be.True(t, !PointerTo(TypeInt).Equal(PointerTo(TypeChar)))
	be.True(t, ArrayOf(TypeInt, 4).Equal(ArrayOf(TypeInt, 4)))
	be.True(t, !ArrayOf(TypeInt, 4).Equal(ArrayOf(TypeInt, 5)))
	be.True(t, !TypeInt.Equal(TypeChar))
}

func TestDecay(t *testing.T) {
	arr := ArrayOf(TypeChar, 8)
	decayed := arr.Decay()
	be.Equal(t, decayed.Kind, KindPtr)
	be.True(t, decayed.Base.Equal(TypeChar))
	// Non-arrays decay to themselves.
	be.Equal(t, TypeInt.Decay(), TypeInt)
}

func TestPointerLike(t *testing.T) {
	be.True(t, PointerTo(TypeInt).IsPointerLike())
	be.True(t, ArrayOf(TypeInt, 2).IsPointerLike())
	be.True(t, !TypeInt.IsPointerLike())
	be.True(t, !TypeChar.IsPointerLike())
}

func TestString(t *testing.T) {
	be.Equal(t, TypeInt.String(), "int")
	be.Equal(t, PointerTo(TypeChar).String(), "char*")
	be.Equal(t, ArrayOf(TypeInt, 3).String(), "int[3]")
}
