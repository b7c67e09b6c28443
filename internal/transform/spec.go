package transform

// RenderSpec is the descriptor a modifier returns for the host render-tree
// walk. Only Transform and Target are computed here, the remaining fields
// pass through untouched.
type RenderSpec struct {
	Target    any         `json:"target,omitempty"`
	Origin    *[2]float64 `json:"origin"`
	Align     *[2]float64 `json:"align"`
	Size      *[2]float64 `json:"size"`
	Transform Matrix      `json:"transform"`
	Opacity   float64     `json:"opacity"`
}

// NewRenderSpec returns a spec with the identity transform and full opacity.
func NewRenderSpec() RenderSpec {
	return RenderSpec{Transform: Identity(), Opacity: 1}
}
