// Command verifier проверяет аналитические решения вероятностных задач
// точным перебором и методом Monte Carlo.
//
//	verifier run                      все эксперименты
//	verifier run sampling --seed 42   один эксперимент с фиксированным seed
//	verifier list
//	verifier run --pdf report.pdf     текстовый отчёт и PDF
//	verifier cache stats
//	verifier kata factors 360
package main

import (
	"stochastic/pkg/logger"
)

// Заполняется через -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		logger.Fatal("command failed", "error", err)
	}
}
