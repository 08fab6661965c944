package camera

// VerifyParams reports whether params has exactly the number of parameters the
// model with the given id requires. Unknown ids never verify.
func VerifyParams(id int, params []float64) bool {
	n := NumParams(id)
	return n >= 0 && len(params) == n
}

// Validate reports whether a camera model name and parameter vector may be used
// for a run. Unknown models are invalid. An empty vector is valid, the reader then
// derives parameters per image; otherwise the length must match the model.
func Validate(modelName string, params []float64) bool {
	id, ok := ModelNameToID(modelName)
	if !ok {
		return false
	}
	if len(params) == 0 {
		return true
	}
	return VerifyParams(id, params)
}
