package math

// ROSE stores geometry right-handed and Z-up, with mesh and skeleton data in
// metres and map placements in centimetres. glTF is right-handed and Y-up,
// so converting between the two is a -90 degree turn about X.

// CentimetresPerMetre converts mesh-space units to map-space units.
const CentimetresPerMetre = 100

// ZUpToYUp converts a position or direction from ROSE space to Y-up space.
func ZUpToYUp(v Vec3) Vec3 {
	return Vec3{v.X, v.Z, -v.Y}
}

// ZUpToYUpQuat converts a rotation from ROSE space to Y-up space.
// The vector part turns like a position; W is unchanged.
func ZUpToYUpQuat(q Quat) Quat {
	return Quat{X: q.X, Y: q.Z, Z: -q.Y, W: q.W}
}

// ZUpToYUpScale converts a per-axis scale from ROSE space to Y-up space.
func ZUpToYUpScale(s Vec3) Vec3 {
	return Vec3{s.X, s.Z, s.Y}
}

// MapToMesh converts a map-space position to mesh units.
func MapToMesh(v Vec3) Vec3 {
	return v.Scale(1.0 / CentimetresPerMetre)
}
