package sqlinline

const QNotifyVideoEvent = `--sql 46271224-6d7c-4cc5-9e3d-fb9ec5f7b756
select pg_notify($1::text, $2::text);
`
