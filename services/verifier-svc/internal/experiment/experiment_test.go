package experiment

import (
	"stochastic/pkg/logger"
)

func init() {
	logger.Init("error")
}
