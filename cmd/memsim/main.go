// Command memsim drives the simulated pool allocator: it replays scripted or
// generated workloads, compares placement strategies and records traces.
package main

func main() {
	execute()
}
