// Package askweb embeds the askweb question answering pipeline in a Go program.
//
// Two entry points mirror the HTTP API:
//   - Search runs one retrieval-synthesis pass: web search, embedding ranking, grounded answer
//   - Ask runs the tool-calling agent, which decides whether to search at all
//
//	client, err := askweb.New(
//	    askweb.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	    askweb.WithSerpAPI(os.Getenv("SERPAPI_KEY")),
//	)
//	ans, _ := client.Search(ctx, "current ECB deposit rate")
//	fmt.Println(ans.Text)
//	for _, s := range ans.Sources {
//	    fmt.Println(s.Score, s.Link)
//	}
//
//	reply, _ := client.Ask(ctx, "Who maintains the Go chi router?")
//	fmt.Println(reply.Text)
package askweb
