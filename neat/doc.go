// Package neat implements a neuro-evolution engine in the style of
// NeuroEvolution of Augmenting Topologies (NEAT): populations of small,
// topology-varying neural network genomes are evolved against an external
// fitness signal, with reproductive isolation by species to protect
// structural innovation.
//
// The engine is environment-agnostic. Genomes are compiled into runnable
// networks by the nn subpackage and scored by any FitnessFunc; the env
// subpackage provides one backed by a parallel episode runner.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("path/to/config.ini")
//	if err != nil {
//		log.Fatalf("loading config: %v", err)
//	}
//
//	pop, err := neat.NewPopulation(config)
//	if err != nil {
//		log.Fatalf("creating population: %v", err)
//	}
//
//	for i := 0; i < 100; i++ {
//		winner, err := pop.RunGeneration(evalGenomes)
//		if err != nil {
//			log.Fatalf("generation failed: %v", err)
//		}
//		if winner != nil {
//			break
//		}
//	}
package neat
