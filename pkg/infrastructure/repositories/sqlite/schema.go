package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS plans (
    id         TEXT PRIMARY KEY,
    number     TEXT NOT NULL,
    type       TEXT NOT NULL,
    status     TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    data       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS requirements (
    plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
    seq     INTEGER NOT NULL,
    data    TEXT NOT NULL,
    PRIMARY KEY (plan_id, seq)
);

CREATE TABLE IF NOT EXISTS planned_orders (
    id         TEXT PRIMARY KEY,
    plan_id    TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
    seq        INTEGER NOT NULL,
    product_id TEXT NOT NULL,
    status     TEXT NOT NULL,
    data       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_planned_orders_plan ON planned_orders(plan_id, seq);
CREATE INDEX IF NOT EXISTS idx_planned_orders_product ON planned_orders(product_id, status);

CREATE TABLE IF NOT EXISTS capacity_requirements (
    plan_id        TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
    seq            INTEGER NOT NULL,
    work_center_id TEXT NOT NULL,
    data           TEXT NOT NULL,
    PRIMARY KEY (plan_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_capacity_requirements_wc ON capacity_requirements(plan_id, work_center_id);

CREATE TABLE IF NOT EXISTS exceptions (
    id          TEXT PRIMARY KEY,
    plan_id     TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
    seq         INTEGER NOT NULL,
    type        TEXT NOT NULL,
    severity    TEXT NOT NULL,
    is_resolved INTEGER NOT NULL DEFAULT 0,
    data        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exceptions_plan ON exceptions(plan_id, seq);
`
