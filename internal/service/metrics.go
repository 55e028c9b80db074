package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compileAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyteller_compile_attempts_total",
		Help: "Количество попыток автокомпиляции книги по результату.",
	}, []string{"result"})

	beatGenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyteller_beat_generations_total",
		Help: "Количество обращений к генератору повествования по типу операции.",
	}, []string{"operation"})
)
