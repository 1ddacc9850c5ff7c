package dist

import (
	"math"

	"github.com/sirupsen/logrus"
)

// weibullShapeFromCV turns a delay given as {dist: weibull, mean, cv} into the
// shape k whose spread matches cv. The search bisects k over [0.1, 100] and
// stops within 0.001 of the target; a delay whose cv cannot be reached gets
// the closest k and a warning.
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// larger k, tighter delays
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibull delay: no shape matches cv=%.3f, using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

// weibullCV is the cv of a Weibull delay with shape k; the scale cancels out.
func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
