// Package agents implements the stochastic spatial agent model.
//
// A fixed number of agent slots live on an integer grid. Each slot runs a life
// process that sleeps, then spends the day either at home or at a random outside
// location where it may catch or pass on the infection. An Aggregator samples the
// health counts every interval, derives transmission statistics over a sliding
// window, and stops the run once no agent is infectious.
package agents
