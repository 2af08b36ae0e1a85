package math

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 0.0001
}

func approxVec(a, b Vec3) bool {
	return approx(a.X, b.X) && approx(a.Y, b.Y) && approx(a.Z, b.Z)
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, -1, 0}
	if got := a.Min(b); got != (Vec3{1, -1, -2}) {
		t.Errorf("Min() = %v", got)
	}
	if got := a.Max(b); got != (Vec3{3, 5, 0}) {
		t.Errorf("Max() = %v", got)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()
	if !approx(n.Length(), 1) {
		t.Errorf("normalized length = %v, want 1", n.Length())
	}
}

func TestQuatRotate(t *testing.T) {
	// 90 degrees around Z turns +X into +Y.
	q := QuatFromAxisAngle(Vec3{0, 0, 1}, float32(math.Pi/2))
	got := q.Rotate(Vec3{1, 0, 0})
	if !approxVec(got, Vec3{0, 1, 0}) {
		t.Errorf("Rotate() = %v, want (0,1,0)", got)
	}
}

func TestQuatSlerpEndpoints(t *testing.T) {
	q1 := QuatIdentity()
	q2 := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	if r := q1.Slerp(q2, 0); !approx(r.W, q1.W) {
		t.Errorf("Slerp at t=0 should equal q1, got %v", r)
	}
	if r := q1.Slerp(q2, 1); !approx(r.W, q2.W) {
		t.Errorf("Slerp at t=1 should equal q2, got %v", r)
	}
}

func TestQuatToMat4Identity(t *testing.T) {
	m := QuatIdentity().ToMat4()
	id := Identity()
	for i := range m {
		if !approx(m[i], id[i]) {
			t.Errorf("element %d: got %v, want %v", i, m[i], id[i])
		}
	}
}

func TestTRS(t *testing.T) {
	rot := QuatFromAxisAngle(Vec3{0, 0, 1}, float32(math.Pi/2))
	m := TRS(Vec3{10, 0, 0}, rot, Vec3{2, 2, 2})

	// (1,0,0) scaled to (2,0,0), rotated to (0,2,0), moved to (10,2,0).
	got := m.TransformVec3(Vec3{1, 0, 0})
	if !approxVec(got, Vec3{10, 2, 0}) {
		t.Errorf("TRS transform = %v, want (10,2,0)", got)
	}
	if m.Translation() != (Vec3{10, 0, 0}) {
		t.Errorf("Translation() = %v", m.Translation())
	}
}

func TestZUpToYUp(t *testing.T) {
	// ROSE up (Z) becomes glTF up (Y).
	if got := ZUpToYUp(Vec3{0, 0, 1}); got != (Vec3{0, 1, 0}) {
		t.Errorf("ZUpToYUp(up) = %v", got)
	}
	if got := ZUpToYUp(Vec3{1, 2, 3}); got != (Vec3{1, 3, -2}) {
		t.Errorf("ZUpToYUp() = %v", got)
	}
}

func TestZUpToYUpQuat(t *testing.T) {
	// Rotating a point then converting must match converting both then rotating.
	q := QuatFromAxisAngle(Vec3{1, 2, 3}.Normalize(), 0.7)
	p := Vec3{0.5, -1, 2}

	want := ZUpToYUp(q.Rotate(p))
	got := ZUpToYUpQuat(q).Rotate(ZUpToYUp(p))
	if !approxVec(got, want) {
		t.Errorf("converted rotation = %v, want %v", got, want)
	}
}

func TestZUpToYUpScale(t *testing.T) {
	if got := ZUpToYUpScale(Vec3{1, 2, 3}); got != (Vec3{1, 3, 2}) {
		t.Errorf("ZUpToYUpScale() = %v", got)
	}
}

func TestMapToMesh(t *testing.T) {
	if got := MapToMesh(Vec3{100, -250, 50}); !approxVec(got, Vec3{1, -2.5, 0.5}) {
		t.Errorf("MapToMesh() = %v", got)
	}
}

func TestMat4_InverseRigid(t *testing.T) {
	m := TRS(Vec3{3, -2, 5}, QuatFromAxisAngle(Vec3{0, 1, 1}.Normalize(), 1.1), One())
	p := Vec3{1, 2, 3}

	if got := m.InverseRigid().TransformVec3(m.TransformVec3(p)); !approxVec(got, p) {
		t.Errorf("inverse round trip = %v, want %v", got, p)
	}

	id := m.Mul(m.InverseRigid())
	for i, v := range Identity() {
		if !approx(id[i], v) {
			t.Fatalf("m * inverse [%d] = %v, want %v", i, id[i], v)
		}
	}
}

func TestMat4_Columns(t *testing.T) {
	cols := Translate(Vec3{7, 8, 9}).Columns()
	if cols[3] != [4]float32{7, 8, 9, 1} {
		t.Errorf("translation column = %v", cols[3])
	}
	if cols[0] != [4]float32{1, 0, 0, 0} {
		t.Errorf("first column = %v", cols[0])
	}
}
