package ai

// fundEventsSchemaDescription describes the ClickHouse schema used for
// NL→SQL prompting.
//
// Keep it in sync with the table definitions in internal/events.
const fundEventsSchemaDescription = `
Database: toucans
Table: fund_events

Columns:
  - project_id     String         -- DAO project identifier
  - transaction_id String         -- Flow transaction id of the contribution
  - timestamp      DateTime64(3)  -- Block time of the contribution (UTC)
  - token_symbol   String         -- Currency of the contribution, e.g. "FLOW" or "USDC"
  - amount         Float64        -- Amount in token_symbol units
  - funder         String         -- Flow address of the contributor
  - data           String         -- Raw event payload as JSON

Table: proposal_events

Columns:
  - project_id String             -- DAO project identifier
  - timestamp  DateTime64(3)      -- Block time of the proposal (UTC)

Notes:
  - Funding totals are per token_symbol; amounts in different currencies must not be summed directly.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 7 DAY.
  - Each row in fund_events is one contribution; COUNT(DISTINCT funder) gives unique contributors.
`
