// Package harness runs conformance scenarios for query models.
//
// A scenario declares an inline source table and an operator pipeline
// over it, then pins what the pipeline turns into: the canonical model
// rendering, the output shape, the executed result, or the error.
//
// # Scenario Format
//
//	name: adults
//	description: "Where then Select flattens into one model"
//	source:
//	  name: people
//	  type: "Person{name: string, age: int}"
//	  rows:
//	    - {name: ann, age: 34}
//	    - {name: bob, age: 27}
//	ops:
//	  - op: Where
//	    args: ["p => p.age > 30"]
//	  - op: Select
//	    args: ["p => p.name"]
//	expect:
//	  model: "from p in people where ([p].age > 30) select [p].name"
//	  shape: "seq<string>"
//	  result: [ann]
//
// Ops use the same argument syntax as CUE query definitions: lambdas,
// table names, or closed values. expect.error takes a substring of the
// first failure and excludes expect.result.
//
// # Deterministic Output
//
// Runs are isolated: each scenario gets its own program and in-memory
// catalog, and logs go to io.Discard unless a logger is supplied.
// Snapshot renders a run as canonical JSON so golden files compare
// byte for byte.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/adults.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
