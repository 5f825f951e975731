package catalog

import (
	"fmt"
	"math"
)

// BenchmarkFitness resolves a symbolic benchmark name to a built-in
// numeric function (§4.4 "For benchmark fitness: resolve the symbolic
// fitness name to a built-in numeric function"). §1 treats the
// benchmark fitness function *library* as an external collaborator;
// these two are carried as the minimal reference set needed to
// exercise the runner end-to-end (§8 scenario 1 names "sphere"
// explicitly).
func BenchmarkFitness(name string) (FitnessFunc, bool) {
	switch name {
	case "sphere":
		return sphere, true
	case "rastrigin":
		return rastrigin, true
	default:
		return nil, false
	}
}

func sphere(x []float64) (float64, error) {
	sum := 0.0
	for _, xi := range x {
		sum += xi * xi
	}
	return sum, nil
}

func rastrigin(x []float64) (float64, error) {
	const a = 10.0
	sum := a * float64(len(x))
	for _, xi := range x {
		sum += xi*xi - a*math.Cos(2*math.Pi*xi)
	}
	return sum, nil
}

// errNonNumeric is returned by a wrapped fitness function when the
// underlying computation produces NaN/Inf, which the Algorithm Runner
// treats as a runtime failure (§4.3 Output "runtime ... returned a
// non-numeric fitness").
var errNonNumeric = fmt.Errorf("fitness value is not a finite number")

// guardNumeric wraps fn so a NaN/Inf result surfaces as an error
// instead of silently propagating into a convergence curve.
func guardNumeric(fn FitnessFunc) FitnessFunc {
	return func(x []float64) (float64, error) {
		v, err := fn(x)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, errNonNumeric
		}
		return v, nil
	}
}
