// Package sync drives a treesync run: it validates the arguments, takes the
// destination lock and feeds the planner's action stream through the worker
// pool.
//
// A run is one pass over the source/destination pair, or in child-only mode
// one independent pass per immediate subdirectory of the source:
//
//	s := sync.New(sync.Options{
//	    Source:      "/data/in",
//	    Destination: "/backup/in",
//	    Policy:      model.Policy{Mirror: true},
//	    Retry:       model.DefaultRetryPolicy(),
//	})
//	result, err := s.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Print(result.Summary())
//
// A failing child pass never stops the others. The Result aggregates the
// statistics of every pass and reports one Status for the whole run.
package sync
