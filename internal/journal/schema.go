package journal

const Schema = `
CREATE TABLE IF NOT EXISTS closed_trades (
    trade_id INTEGER PRIMARY KEY,
    account_id INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    volume TEXT NOT NULL,
    entry_price TEXT NOT NULL,
    close_price TEXT NOT NULL,
    profit TEXT NOT NULL,
    forced_outcome TEXT NOT NULL,
    path TEXT NOT NULL,
    open_time TIMESTAMP NOT NULL,
    close_time TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_closed_trades_close_time ON closed_trades(close_time);
CREATE INDEX IF NOT EXISTS idx_closed_trades_account ON closed_trades(account_id);
`
