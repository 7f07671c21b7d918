package gql

import (
	"bytes"
	"html/template"
)

var graphiqlPage = template.Must(template.New("graphiql").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>GraphiQL</title>
  <style>html, body, #graphiql { height: 100%; margin: 0; overflow: hidden; width: 100%; }</style>
  <link rel="stylesheet" href="https://unpkg.com/graphiql@3/graphiql.min.css">
</head>
<body>
  <div id="graphiql">Loading...</div>
  <script src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
  <script src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
  <script src="https://unpkg.com/graphiql@3/graphiql.min.js"></script>
  <script>
    var fetcher = GraphiQL.createFetcher({ url: {{.URL}} });
    ReactDOM.createRoot(document.getElementById('graphiql')).render(
      React.createElement(GraphiQL, { fetcher: fetcher })
    );
  </script>
</body>
</html>
`))

// GraphiQLSource renders the explorer page wired to the given GraphQL endpoint
func GraphiQLSource(graphqlURL string) ([]byte, error) {
	var buf bytes.Buffer
	if err := graphiqlPage.Execute(&buf, struct{ URL string }{URL: graphqlURL}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
