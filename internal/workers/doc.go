// Package workers sizes worker pools for containerized deployments.
//
// runtime.NumCPU reports the host's CPU count, which overshoots badly
// when a cgroup limit caps the pod at a fraction of the node. Go 1.19+
// sets GOMAXPROCS from the container limit, so pool sizing derives
// from GOMAXPROCS instead and the PIPELINE_WORKERS environment
// variable provides an operator override.
package workers
