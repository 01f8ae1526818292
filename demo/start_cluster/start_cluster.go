package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/dipAch/singledecree/paxos"
)

// Runs a small cluster through two competing rounds to show the decision
// surviving a second proposer with a different candidate.
func main() {
	numAcceptors := 5
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n < 1 {
			log.Fatalln("ERROR INVALID ARGUMENTS")
		}
		numAcceptors = n
	}

	c := paxos.NewCluster(numAcceptors, 2)
	ctx := context.Background()

	fmt.Printf("cluster: %d acceptors, quorum %d\n", numAcceptors, c.Quorum())

	out, err := c.RunRound(ctx, 1, "blue")
	if err != nil {
		log.Fatalln("Error Running Round: ", err)
	}
	fmt.Printf("round 1 by node 1 proposing %q: committed=%v decision=%v %q\n",
		"blue", out.Committed, out.Decision.N, out.Decision.Value)

	// a different proposer with a different candidate must rediscover and
	// recommit the first decision's value
	out, err = c.RunRound(ctx, 2, "green")
	if err != nil {
		log.Fatalln("Error Running Round: ", err)
	}
	fmt.Printf("round 2 by node 2 proposing %q: committed=%v decision=%v %q\n",
		"green", out.Committed, out.Decision.N, out.Decision.Value)

	for _, id := range c.LearnerIDs() {
		if d, ok := c.Learner(id).Decision(); ok {
			fmt.Printf("learner %d: %v %q\n", id, d.N, d.Value)
		}
	}
}
