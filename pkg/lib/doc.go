// Package lib provides a Go SDK for driving an update management dashboard programmatically.
//
// This package allows applications to send actions to the dashboard agents and
// follow their tasks without shelling out to the updash CLI binary. It is useful
// for scripting, automation, and building tools on top of the dashboard.
//
// # Quick Start
//
// Create a client, refresh a machine and wait until its task is finished:
//
//	client, err := lib.New(ctx, lib.Config{
//	    URL:    "http://dashboard.local:5000",
//	    APIKey: os.Getenv("UPDASH_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	rec, err := client.RunAction(ctx, lib.ActionRequest{
//	    Kind:      lib.ActionRefresh,
//	    MachineID: "42",
//	})
//	fmt.Println(rec.TaskID, rec.Outcome) // e.g. "01J... completed"
//
// # Actions
//
// Every action is sent once. When the dashboard answers with a task, the task
// is polled at a fixed interval until it reaches a terminal status and the
// machine view is reloaded. Actions without a task fall back to a delayed view
// reload, or just report the dashboard message.
//
// [Client.RunAction] blocks until the end. [Client.StartAction] returns as soon
// as the dashboard answered and keeps following the action in the background:
//
//	pending, _ := client.StartAction(ctx, lib.ActionRequest{
//	    Kind:      lib.ActionUpdate,
//	    MachineID: "42",
//	    PackageID: "7zip.7zip",
//	})
//	// ...
//	rec, err := pending.Wait()
//
// # Confirmations
//
// Destructive and forced actions ask [Config].Confirm before being sent. By
// default every action is confirmed. Declined actions are recorded with the
// [OutcomeDeclined] outcome and nothing is sent.
//
// # Tasks
//
// Query or wait for any task by ID:
//
//	task, _ := client.GetTask(ctx, "task-1")
//	task, _ = client.WaitTask(ctx, "task-1", func(s lib.TaskStatus) {
//	    fmt.Println("still", s)
//	})
//
// # Agents
//
// Generate and download an agent binary:
//
//	dl, _ := client.DownloadAgent(ctx, lib.AgentConfig{
//	    APIEndpoint1:   "http://dashboard.local:5000",
//	    LoopInterval:   60,
//	    ReportInterval: 3600,
//	}, &lib.DownloadAgentOpts{OutputDir: "/tmp"})
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Resource does not exist.
//   - [ErrNotValid]: Invalid input (e.g. an update without package).
//   - [ErrTransport]: The dashboard could not be reached or answered with an HTTP error.
//   - [ErrRejected]: The dashboard refused the action.
//   - [ErrPollTimeout]: The task did not finish within the poll attempts.
//   - [ErrTaskFailed]: The task finished without success.
//
// # Testing
//
// Use [DashboardFake] to write tests without a running dashboard:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    Dashboard:    lib.DashboardFake,
//	    PollInterval: time.Millisecond,
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. Every action
// is followed by its own independent poll loop.
package lib
